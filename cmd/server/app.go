package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/phrazzld/questboard-api/internal/api"
	"github.com/phrazzld/questboard-api/internal/chat"
	"github.com/phrazzld/questboard-api/internal/config"
	"github.com/phrazzld/questboard-api/internal/events"
	"github.com/phrazzld/questboard-api/internal/platform/memory"
	"github.com/phrazzld/questboard-api/internal/platform/metrics"
	"github.com/phrazzld/questboard-api/internal/platform/postgres"
	"github.com/phrazzld/questboard-api/internal/platform/rabbitmq"
	"github.com/phrazzld/questboard-api/internal/platform/webhook"
	"github.com/phrazzld/questboard-api/internal/service"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/phrazzld/questboard-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// application holds the shared dependencies of the server so they can be
// shut down in order.
type application struct {
	config *config.Config
	logger *slog.Logger

	stores     store.Stores
	metrics    *metrics.Metrics
	dispatcher *events.Dispatcher
	broker     *rabbitmq.Publisher
	engine     *chat.Engine
	router     http.Handler
}

// newApplication wires stores, event delivery, the chat engine, services
// and the router. When migrate is set, pending migrations are applied first.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	stores, db, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.stores = stores
	if migrate {
		if db == nil {
			logger.Warn("ignoring --migrate for the memory driver")
		} else if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
			_ = stores.Close()
			return nil, err
		}
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))
	if cfg.Events.WebhookURL != "" {
		emitter.RegisterHandler(webhook.NewHandler(webhook.Config{
			URL:     cfg.Events.WebhookURL,
			Secret:  cfg.Events.WebhookSecret,
			Timeout: cfg.Events.WebhookTimeout(),
		}, logger))
		logger.Info("webhook notifications enabled")
	}
	if cfg.Events.AMQP.Enabled {
		app.broker, err = rabbitmq.Dial(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange, logger)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}
		emitter.RegisterHandler(app.broker)
		logger.Info("broker notifications enabled", slog.String("exchange", cfg.Events.AMQP.Exchange))
	}
	app.dispatcher = events.NewDispatcher(emitter, events.DispatcherConfig{
		QueueSize:   cfg.Events.QueueSize,
		WorkerCount: cfg.Events.WorkerCount,
	}, app.metrics, logger)

	tokens, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	guard := auth.NewGuard(tokens, stores.Accounts, logger)

	registry := chat.NewRegistry(logger)
	app.engine = chat.NewEngine(registry, guard, stores.Tasks, stores.Messages, chat.Config{
		SendBuffer:      cfg.Chat.SendBuffer,
		WriteTimeout:    cfg.Chat.WriteTimeout(),
		PongTimeout:     cfg.Chat.PongTimeout(),
		MaxMessageBytes: cfg.Chat.MaxMessageBytes,
		CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
	}, app.metrics, logger)

	accounts := service.NewAccountService(stores.Accounts, tokens, auth.NewBcryptVerifier(cfg.Auth.BCryptCost),
		cfg.Auth.TokenLifetime(), logger)
	tasks := service.NewTaskService(stores.Tasks, stores.Accounts, app.dispatcher, app.metrics, logger)
	messages := service.NewMessageService(stores.Tasks, stores.Messages, app.engine, logger)

	app.router = api.NewRouter(api.RouterDeps{
		Accounts:       accounts,
		Tasks:          tasks,
		Messages:       messages,
		Guard:          guard,
		Chat:           app.engine,
		Stats:          registry,
		Requests:       app.metrics,
		MetricsHandler: app.metrics.Handler(),
		Logger:         logger,
	})

	logger.Info("application initialized")
	return app, nil
}

// openStores returns the configured store implementation. db is nil for the
// memory driver.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Stores, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using the in-memory store; data is lost on exit")
		return memory.NewStores(logger), nil, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database, logger)
		if err != nil {
			return store.Stores{}, nil, err
		}
		return postgres.NewStores(db, logger), db, nil
	}
	return store.Stores{}, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// originChecker allows any origin when none are configured, otherwise only
// the listed ones. Requests without an Origin header are always allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.ContainsFunc(allowed, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// everything down within the configured timeout.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.dispatcher.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
		defer cancel()
		return app.shutdown(shutdownCtx, server)
	})

	return g.Wait()
}

// shutdown stops accepting requests, closes chat sessions, drains pending
// events and releases the stores.
func (app *application) shutdown(ctx context.Context, server *http.Server) error {
	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
	}
	if err := app.engine.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := app.dispatcher.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := app.closeResources(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		app.logger.Error("shutdown completed with errors", slog.String("error", err.Error()))
	} else {
		app.logger.Info("shutdown completed")
	}
	return err
}

func (app *application) closeResources() error {
	var errs []error
	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close broker: %w", err))
		}
	}
	if app.stores.Close != nil {
		if err := app.stores.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stores: %w", err))
		}
	}
	return errors.Join(errs...)
}
