package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func drainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Make one delivery attempt for every queued notification batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			settled, err := a.outboxWorker.DrainOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("settled", settled).Msg("Outbox drained")
			return nil
		},
	}
}

func ensureIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the roster collection indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if a.rosterRepository == nil {
				log.Warn().Msg("In-memory storage has no indexes")
				return nil
			}
			err = a.rosterRepository.EnsureIndexes(cmd.Context(), cfg.UniqueServiceDate)
			if err != nil {
				return err
			}
			log.Info().Bool("unique", cfg.UniqueServiceDate).Msg("Roster indexes ensured")
			return nil
		},
	}
}
