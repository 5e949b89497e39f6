package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/klwxsrx/storefront-console/internal/session"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

const (
	metricsPath              = "/metrics"
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

func (a *app) keepaliveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keepalive",
		Short: "Keep the session alive by refreshing it before the access token expires",
		RunE: a.run(func(c *cobra.Command, _ []string) error {
			s, err := a.container.Sessions.Load()
			if err != nil {
				return err
			}
			if _, ok := s.AccessToken(c.Context()); !ok {
				return fmt.Errorf("%w: run `storefront login` first", session.ErrSessionEnded)
			}

			cfg := a.container.Config
			logger := a.container.Logger.MustLoad()
			ctx, cancel := context.WithCancelCause(c.Context())
			defer cancel(nil)

			check := session.KeepAlive(s, pkgtime.NewClock(), cfg.Session.KeepaliveThreshold)
			job := func(ctx context.Context) {
				err := check(ctx)
				if err != nil {
					logger.WithError(err).Warn(ctx, "session keepalive stopped")
					cancel(err)
				}
			}
			job(ctx)

			processes := []worker.ErrorJob{worker.PeriodicRunner(job, cfg.Session.KeepaliveInterval)}
			if cfg.MetricsAddress != "" {
				processes = append(processes, metricsServer(cfg.MetricsAddress, a.container.Registry))
			}

			err = worker.RunHub(ctx, logger, processes[0], processes[1:]...)
			if cause := context.Cause(ctx); errors.Is(cause, session.ErrSessionEnded) {
				return cause
			}
			return err
		}),
	}
}

func metricsServer(address string, registry *prometheus.Registry) worker.ErrorJob {
	return func(ctx context.Context) error {
		router := mux.NewRouter()
		router.Handle(metricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

		srv := &http.Server{
			Addr:              address,
			Handler:           router,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return ctx.Err()
		}
		return err
	}
}
