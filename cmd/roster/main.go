package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeyave/scala-roster/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "roster"

var (
	configFile  string
	membersFile string
)

func commonRun() (*helpers.Config, error) {
	cfg, err := helpers.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}

	err = helpers.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	_, err = maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		log.Info().Str("component", programName).Msgf(format, v...)
	}))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Volunteer duty roster service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&membersFile, "members", "", "YAML member list seeding the in-memory directory")

	rootCmd.AddCommand(
		serveCommand(),
		drainCommand(),
		ensureIndexesCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed:")
		stop()
		os.Exit(1)
	}
}
