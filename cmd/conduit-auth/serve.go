package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/sync/errgroup"

	auth "github.com/goliatone/go-conduit-auth"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("address", defaultAddress, "listen address")
	cmd.Flags().Int("hash-workers", 0, "concurrent password hashing slots, 0 means GOMAXPROCS")
	cmd.Flags().Bool("use-hashid", false, "derive new user ids from the email with hashid")

	return cmd
}

func serve(parent context.Context, cfg appConfig) error {
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, sqldb, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := auth.Migrate(ctx, client); err != nil {
		return err
	}

	db, err := auth.BunDB(client)
	if err != nil {
		return err
	}

	srv := newServer(db, cfg, logger)

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info("listening on %s (%s)", cfg.Address, cfg.Auth.Environment)
		return srv.Serve(cfg.Address)
	})
	grp.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return grp.Wait()
}

func newServer(db *bun.DB, cfg appConfig, logger auth.Logger) router.Server[*fiber.App] {
	srv := auth.NewServer(logger)

	srv.WrappedRouter().Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	ctrl := auth.NewController(repo, cfg.Auth,
		auth.WithControllerLogger(logger),
		auth.WithControllerHasher(auth.NewPasswordHasher(cfg.HashWorkers)),
		auth.WithControllerHashidIDs(cfg.UseHashid),
		auth.WithControllerActivitySink(auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			logger.Debug("activity %s user=%s object=%s", e.EventType, e.UserID, e.ObjectID)
			return nil
		})),
	)
	auth.RegisterConduitRoutes(srv.Router().Group("/api"), ctrl)

	return srv
}

// openDB returns the persistence client and the pool behind it, the caller
// closes the pool.
func openDB(cfg appConfig, logger auth.Logger) (*persistence.Client, *sql.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	// SQLite serialises writers, one connection avoids SQLITE_BUSY under load
	sqldb.SetMaxOpenConns(1)

	client, err := auth.NewPersistenceClient(auth.PersistenceConfig{
		DSN:   cfg.Database,
		Debug: cfg.LogLevel == "debug",
	}, sqldb, logger)
	if err != nil {
		_ = sqldb.Close()
		return nil, nil, err
	}

	return client, sqldb, nil
}
