package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	tokenstoremigrations "github.com/klwxsrx/storefront-console/data/sql/tokenstore"
	"github.com/klwxsrx/storefront-console/internal/authapi"
	"github.com/klwxsrx/storefront-console/internal/authenticator"
	"github.com/klwxsrx/storefront-console/internal/claims"
	"github.com/klwxsrx/storefront-console/internal/config"
	"github.com/klwxsrx/storefront-console/internal/guard"
	infrapulsar "github.com/klwxsrx/storefront-console/internal/infra/pulsar"
	"github.com/klwxsrx/storefront-console/internal/session"
	"github.com/klwxsrx/storefront-console/internal/storefront"
	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	"github.com/klwxsrx/storefront-console/pkg/event"
	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
	"github.com/klwxsrx/storefront-console/pkg/lazy"
	"github.com/klwxsrx/storefront-console/pkg/log"
	"github.com/klwxsrx/storefront-console/pkg/metric"
	"github.com/klwxsrx/storefront-console/pkg/observability"
	"github.com/klwxsrx/storefront-console/pkg/pulsar"
	"github.com/klwxsrx/storefront-console/pkg/sql"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

const (
	RequestIDHeader = pkghttp.DefaultRequestIDHeader

	retryInitialInterval = 200 * time.Millisecond
	tokenStoreDirName    = "storefront-console"
)

type Container struct {
	Config            config.Config
	Registry          *prometheus.Registry
	Logger            lazy.Loader[log.Logger]
	Metrics           lazy.Loader[metric.Metrics]
	HTTPClientFactory lazy.Loader[pkghttp.ClientFactory]
	DB                lazy.Loader[sql.Database]
	Pulsar            lazy.Loader[pulsar.Connection]
	EventDispatcher   lazy.Loader[event.Dispatcher]
	EventPool         worker.Pool
	TokenStore        lazy.Loader[tokenstore.Store]
	Sessions          lazy.Loader[session.Service]
	Authenticator     lazy.Loader[*authenticator.Authenticator]
	Storefront        lazy.Loader[storefront.Client]
	Router            lazy.Loader[*guard.Router]
}

// NewContainer wires the console dependencies, nothing is connected until first use.
// onSessionExpired runs once per refresh failure that ended the session.
func NewContainer(ctx context.Context, cfg config.Config, onSessionExpired func(context.Context)) *Container {
	registry := prometheus.NewRegistry()
	logger := loggerProvider(cfg)
	metrics := metricsProvider(registry)
	observer := observerProvider(logger)
	httpClientFactory := httpClientFactoryProvider(cfg, observer, metrics, logger)

	db := sqlDatabaseProvider(ctx, cfg, logger)
	pulsarConn := pulsarConnectionProvider(cfg, logger)
	dispatcher := eventDispatcherProvider(ctx, cfg, pulsarConn, logger)
	eventPool := worker.NewPool(worker.MaxWorkersCountUnlimited)
	tokenStore := tokenStoreProvider(ctx, cfg, db, logger)
	sessions := sessionServiceProvider(cfg, httpClientFactory, tokenStore, dispatcher, eventPool, logger)
	auth := authenticatorProvider(sessions, onSessionExpired, metrics, logger)
	router := lazy.New(func() (*guard.Router, error) {
		return guard.NewRouter(guard.NewAuthorizer(sessions.MustLoad(), guard.WithLogger(logger.MustLoad()))), nil
	})

	return &Container{
		Config:            cfg,
		Registry:          registry,
		Logger:            logger,
		Metrics:           metrics,
		HTTPClientFactory: httpClientFactory,
		DB:                db,
		Pulsar:            pulsarConn,
		EventDispatcher:   dispatcher,
		EventPool:         eventPool,
		TokenStore:        tokenStore,
		Sessions:          sessions,
		Authenticator:     auth,
		Storefront:        storefrontProvider(cfg, httpClientFactory, auth),
		Router:            router,
	}
}

// Close flushes pending session events before the connections go away.
func (c *Container) Close(ctx context.Context) {
	c.EventPool.Wait()
	c.Pulsar.IfLoaded(func(conn pulsar.Connection) { conn.Close() })
	c.DB.IfLoaded(func(db sql.Database) { db.Close(ctx) })
}

func loggerProvider(cfg config.Config) lazy.Loader[log.Logger] {
	return lazy.New(func() (log.Logger, error) {
		return log.New(cfg.Level()), nil
	})
}

func metricsProvider(registry *prometheus.Registry) lazy.Loader[metric.Metrics] {
	return lazy.New(func() (metric.Metrics, error) {
		return metric.NewPrometheusMetrics(registry), nil
	})
}

func observerProvider(logger lazy.Loader[log.Logger]) lazy.Loader[observability.Observer] {
	return lazy.New(func() (observability.Observer, error) {
		return observability.New(
			observability.WithFieldsLogging(logger.MustLoad(), observability.LogFieldRequestID),
		), nil
	})
}

func httpClientFactoryProvider(
	cfg config.Config,
	observer lazy.Loader[observability.Observer],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[pkghttp.ClientFactory] {
	return lazy.New(func() (pkghttp.ClientFactory, error) {
		return pkghttp.NewClientFactory(
			pkghttp.WithTimeout(cfg.HTTP.Timeout),
			pkghttp.WithRequestObservability(observer.MustLoad(), RequestIDHeader),
			pkghttp.WithRequestMetrics(metrics.MustLoad()),
			pkghttp.WithRequestLogging(logger.MustLoad(), log.LevelDebug, log.LevelWarn),
		), nil
	})
}

func sqlDatabaseProvider(
	ctx context.Context,
	cfg config.Config,
	logger lazy.Loader[log.Logger],
) lazy.Loader[sql.Database] {
	return lazy.New(func() (sql.Database, error) {
		db, err := sql.NewDatabase(ctx, sql.Config{
			DSN:               cfg.TokenStore.SQLDSN,
			ConnectionTimeout: cfg.TokenStore.SQLConnectionTimeout,
		}, logger.MustLoad())
		if err != nil {
			return nil, fmt.Errorf("open sql connection: %w", err)
		}

		err = sql.NewMigrator(db, logger.MustLoad()).Execute(ctx, tokenstoremigrations.Migrations)
		if err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("execute migrations: %w", err)
		}

		return db, nil
	})
}

func pulsarConnectionProvider(cfg config.Config, logger lazy.Loader[log.Logger]) lazy.Loader[pulsar.Connection] {
	return lazy.New(func() (pulsar.Connection, error) {
		return pulsar.NewConnection(pulsar.Config{Address: cfg.Pulsar.Address}, logger.MustLoad())
	})
}

// eventDispatcherProvider never fails: without a reachable broker session events stay local.
func eventDispatcherProvider(
	ctx context.Context,
	cfg config.Config,
	conn lazy.Loader[pulsar.Connection],
	logger lazy.Loader[log.Logger],
) lazy.Loader[event.Dispatcher] {
	return lazy.New(func() (event.Dispatcher, error) {
		if cfg.Pulsar.Address == "" {
			return event.NewDispatcher(), nil
		}

		c, err := conn.Load()
		if err != nil {
			logger.MustLoad().WithError(err).Warn(ctx, "event broker is unavailable, session events are not published")
			return event.NewDispatcher(), nil
		}

		publisher := infrapulsar.NewPublisher(c.Producer(), cfg.Pulsar.TopicPrefix)
		return event.NewDispatcher(publisher.Subscriptions()...), nil
	})
}

// deferredDispatcher connects the event broker on the first dispatch instead of at session wiring.
type deferredDispatcher struct {
	loader lazy.Loader[event.Dispatcher]
}

func (d deferredDispatcher) Dispatch(ctx context.Context, events ...event.Event) error {
	dispatcher, err := d.loader.Load()
	if err != nil {
		return err
	}

	return dispatcher.Dispatch(ctx, events...)
}

func tokenStoreProvider(
	ctx context.Context,
	cfg config.Config,
	db lazy.Loader[sql.Database],
	logger lazy.Loader[log.Logger],
) lazy.Loader[tokenstore.Store] {
	return lazy.New(func() (tokenstore.Store, error) {
		switch cfg.TokenStore.Kind {
		case config.TokenStoreMemory:
			return tokenstore.NewMemoryStore(), nil
		case config.TokenStoreSQL:
			conn, err := db.Load()
			if err != nil {
				return nil, err
			}
			return tokenstore.NewSQLStore(conn, cfg.Scope(), pkgtime.NewClock()), nil
		default:
			dir, err := tokenStoreDir(cfg)
			if err != nil {
				return nil, err
			}
			logger.MustLoad().WithField("dir", dir).Debug(ctx, "using file token store")
			return tokenstore.NewFileStore(dir, cfg.Scope())
		}
	})
}

func sessionServiceProvider(
	cfg config.Config,
	clients lazy.Loader[pkghttp.ClientFactory],
	tokens lazy.Loader[tokenstore.Store],
	dispatcher lazy.Loader[event.Dispatcher],
	eventPool worker.Pool,
	logger lazy.Loader[log.Logger],
) lazy.Loader[session.Service] {
	return lazy.New(func() (session.Service, error) {
		store, err := tokens.Load()
		if err != nil {
			return nil, err
		}

		authClient := clients.MustLoad().InitClient(authapi.DestinationName, cfg.APIURL)
		return session.NewService(
			authapi.New(authClient),
			store,
			claims.NewDecoder(),
			session.WithEventDispatcher(deferredDispatcher{loader: dispatcher}),
			session.WithEventPool(eventPool),
			session.WithLogger(logger.MustLoad()),
			session.WithLogoutTimeout(cfg.Session.LogoutTimeout),
		), nil
	})
}

func authenticatorProvider(
	sessions lazy.Loader[session.Service],
	onSessionExpired func(context.Context),
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[*authenticator.Authenticator] {
	return lazy.New(func() (*authenticator.Authenticator, error) {
		s, err := sessions.Load()
		if err != nil {
			return nil, err
		}

		opts := []authenticator.Option{
			authenticator.WithMetrics(metrics.MustLoad()),
			authenticator.WithLogger(logger.MustLoad()),
		}
		if onSessionExpired != nil {
			opts = append(opts, authenticator.WithOnSessionExpired(onSessionExpired))
		}

		return authenticator.New(s, opts...), nil
	})
}

func storefrontProvider(
	cfg config.Config,
	clients lazy.Loader[pkghttp.ClientFactory],
	auth lazy.Loader[*authenticator.Authenticator],
) lazy.Loader[storefront.Client] {
	return lazy.New(func() (storefront.Client, error) {
		a, err := auth.Load()
		if err != nil {
			return nil, err
		}

		httpClient := clients.MustLoad().InitClient(
			storefront.DestinationName,
			cfg.APIURL,
			pkghttp.WithTrippers(
				a.Tripper(),
				pkghttp.RetryTripper(cfg.HTTP.RetryMax, retryInitialInterval),
			),
		)
		return storefront.NewClient(httpClient, worker.NewPool(worker.MaxWorkersCountNumCPU)), nil
	})
}

func tokenStoreDir(cfg config.Config) (string, error) {
	if cfg.TokenStore.Dir != "" {
		return cfg.TokenStore.Dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve token store dir: %w", err)
	}

	return filepath.Join(base, tokenStoreDirName), nil
}

// NewStderrSessionExpiredHook tells the user to log in again.
func NewStderrSessionExpiredHook(out io.Writer, loginPath string) func(context.Context) {
	return func(context.Context) {
		_, _ = fmt.Fprintf(out, "session expired, redirecting to %s: run `storefront login`\n", loginPath)
	}
}
