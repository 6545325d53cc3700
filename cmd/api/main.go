package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"creditbook/auth"
	"creditbook/config"
	"creditbook/credit"
	"creditbook/db"
	"creditbook/directory"
	"creditbook/httpapi"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("bootstrap database pool")
	}
	defer pool.Close()

	directoryService := directory.NewService(directory.NewRepository(pool))
	creditService := credit.NewService(credit.NewPGStore(pool), directoryService)
	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)

	handler := httpapi.NewHandler(creditService, directoryService, authService, log)
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.NewRouter(handler, authService),
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.WithField("addr", cfg.Addr).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Time-based overdue/late escalation runs outside the request path.
	group.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := creditService.SweepOverdue(ctx)
				if err != nil {
					log.WithError(err).Error("overdue sweep failed")
					continue
				}
				if n > 0 {
					log.WithField("transitioned", n).Info("overdue sweep applied")
				}
			}
		}
	})

	if err := group.Wait(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
