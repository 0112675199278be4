package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coffersTech/probdash/internal/board"
	"github.com/coffersTech/probdash/internal/problem"
	"github.com/coffersTech/probdash/internal/server"
	"github.com/coffersTech/probdash/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	writer, err := storage.NewSnapshotWriter()
	if err != nil {
		return err
	}
	ps, err := a.openPrefs()
	if err != nil {
		return err
	}

	store := board.NewStore()
	if err := a.loadSnapshot(store); err != nil {
		log.Warn().Err(err).Msg("snapshot ignored")
	}

	srv := server.NewBoardServer(store, client, ps, server.Options{
		WebDir:         a.settings.WebDir,
		AllowedOrigins: a.settings.AllowedOrigins,
		DefaultMember:  a.settings.DefaultMember,
		OnReload: func(list []problem.Problem) {
			a.saveSnapshot(writer, list)
		},
	})

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to load problems")
	}

	addr := ":" + a.settings.Port
	log.Info().Msg("running on http://0.0.0.0" + addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		refreshLoop(ctx, srv, a.settings.RefreshInterval)
		return nil
	})

	err = g.Wait()
	a.saveSnapshot(writer, store.List())
	log.Info().Msg("probdash exited")
	return err
}

type reloader interface {
	Reload(ctx context.Context) error
}

// refreshLoop reloads the list every interval until ctx is done. A
// non-positive interval disables it.
func refreshLoop(ctx context.Context, r reloader, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reload(ctx); err != nil {
				log.Error().Err(err).Msg("periodic reload failed")
			}
		}
	}
}
