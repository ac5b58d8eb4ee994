package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/me-sharif-hasan/tunneller/internal/adminapi"
	"github.com/me-sharif-hasan/tunneller/internal/agent"
	"github.com/me-sharif-hasan/tunneller/internal/routing"
)

const httpShutdownTimeout = 5 * time.Second

func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the control loop and admin API in the foreground",
		RunE:  runAgent,
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, path, err := loadStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := agent.New(log, store)
	store.SetListener(func(tbl *routing.Table) {
		log.Debug("routing table updated", zap.Int("rules", len(tbl.Snapshot())))
	})

	admin := adminapi.New(a, log)
	httpServer := &http.Server{Addr: adminAddr, Handler: admin}

	go func() {
		log.Info("admin API listening", zap.String("addr", adminAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin API stopped", zap.Error(err))
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}
	log.Info("control client started", zap.String("domain", store.Domain()))

	<-ctx.Done()
	log.Info("shutting down")

	a.Stop()
	if err := store.Save(path); err != nil {
		log.Warn("failed saving config on shutdown", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
