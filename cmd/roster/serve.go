package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/scala-roster/controller"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, in outbox mode, the delivery worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}
			return serveRun(cmd.Context(), cfg)
		},
	}
}

func serveRun(ctx context.Context, cfg *helpers.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if a.rosterRepository != nil {
		err = a.rosterRepository.EnsureIndexes(ctx, cfg.UniqueServiceDate)
		if err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := controller.NewRouter(
		&controller.RosterController{
			PublicationService:  a.publicationService,
			ConfirmationService: a.confirmationService,
			RosterService:       a.rosterService,
			MemberService:       a.memberService,
			Lang:                cfg.Lang,
			Location:            cfg.Location(),
		},
		&controller.MemberController{
			MemberService: a.memberService,
		},
		a.registry,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("storage", cfg.Storage).Str("dispatch", cfg.DispatchMode).Msg("Serving roster API")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.DispatchMode == helpers.DispatchModeOutbox {
		g.Go(func() error {
			err := a.outboxWorker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
