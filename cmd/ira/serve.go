package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ira/internal/auth"
	"ira/internal/chat"
	"ira/internal/config"
	"ira/internal/db"
	"ira/internal/httpserver"
	"ira/internal/incidents"
	"ira/internal/logging"
)

// backend bundles the stores selected by config.Storage.
type backend struct {
	users     auth.Store
	messages  chat.Store
	incidents incidents.Store
	close     func() error
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on exit")
		return &backend{
			users:     auth.NewMemoryStore(),
			messages:  chat.NewMemoryStore(),
			incidents: incidents.NewMemoryStore(),
			close:     func() error { return nil },
		}, nil
	}

	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &backend{
		users:     auth.NewPostgresStore(dbConn),
		messages:  chat.NewPostgresStore(dbConn),
		incidents: incidents.NewPostgresStore(dbConn),
		close:     dbConn.Close,
	}, nil
}

func loadServerConfig(flags *globalFlags) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.UsesDevSecret() {
		logger.Warn("no JWT secret configured; using the development secret")
	}
	return cfg, logger, nil
}

func newAuthService(cfg config.Config, store auth.Store) *auth.Service {
	return auth.NewService(store, cfg.JWTSecret,
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithBcryptCost(cfg.BcryptCost),
	)
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags)
		},
	}
}

func runServe(ctx context.Context, flags *globalFlags) error {
	cfg, logger, err := loadServerConfig(flags)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	authSvc := newAuthService(cfg, be.users)
	if cfg.UsersPath != "" {
		n, err := authSvc.SeedFromFile(ctx, cfg.UsersPath)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		logger.Info("seeded users", "count", n, "path", cfg.UsersPath)
	}

	rules, err := chat.LoadRules(cfg.RepliesPath)
	if err != nil {
		return fmt.Errorf("load reply rules: %w", err)
	}
	chatSvc := chat.NewService(be.messages, chat.NewResolver(rules))

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:      logger,
		Auth:        authSvc,
		Chat:        chatSvc,
		Incidents:   be.incidents,
		Metrics:     httpserver.NewMetrics(),
		CORSOrigins: cfg.CORSOrigins,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)
	ln, err := server.Listen()
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	if err := server.Run(ctx, ln, cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
