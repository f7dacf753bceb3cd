package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// DefaultPingTimeout bounds the connection check done on startup
const DefaultPingTimeout = 5 * time.Second

// PersistenceConfig configures the database client
type PersistenceConfig struct {
	Debug          bool          `koanf:"debug"`
	DSN            string        `koanf:"dsn"`
	PingTimeout    time.Duration `koanf:"ping_timeout"`
	OtelIdentifier string        `koanf:"otel_identifier"`
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return "sqlite"
}

func (c PersistenceConfig) GetServer() string {
	return c.DSN
}

func (c PersistenceConfig) GetDatabase() string {
	return c.DSN
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return DefaultPingTimeout
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	return c.OtelIdentifier
}

var _ persistence.Config = PersistenceConfig{}

// NewPersistenceClient wraps sqldb in a persistence client with the models
// and the embedded SQL migrations registered. The caller owns sqldb and
// closes it.
func NewPersistenceClient(cfg PersistenceConfig, sqldb *sql.DB, logger Logger) (*persistence.Client, error) {
	persistence.RegisterModel((*User)(nil), (*Article)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to connect database").
			WithMetadata(map[string]any{"dsn": cfg.DSN})
	}

	logger = normalizeLogger(logger)
	client.SetLogger(logger.Debug)

	migrations, err := MigrationsFS()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open migrations")
	}
	client.RegisterSQLMigrations(migrations)

	return client, nil
}

// BunDB returns the bun database behind the client
func BunDB(client *persistence.Client) (*bun.DB, error) {
	db, ok := client.DB().(*bun.DB)
	if !ok {
		return nil, goerrors.New("persistence client has no bun database", goerrors.CategoryInternal)
	}
	return db, nil
}

// Migrate applies the registered migrations not yet recorded in the
// bun_migrations table.
func Migrate(ctx context.Context, client *persistence.Client) error {
	if err := client.Migrate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}
	return nil
}
