package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/internal/logging"
	"github.com/dominicf2001/comfyforum/internal/metrics"
	"github.com/dominicf2001/comfyforum/web"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the forum HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.Logger()

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	sessionStore, closer, err := openSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer closer.Close()

	sessions := auth.NewSessions(sessionStore, auth.SessionConfig{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
		MaxAge:     cfg.Session.MaxAge,
	})

	server := web.NewServer(store, sessions, metrics.New())
	server.StaticDir = cfg.StaticDir
	server.Dev = cfg.Dev

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.Store.Driver).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
