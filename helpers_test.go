package auth_test

import (
	"context"
	"database/sql"
	"testing"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-conduit-auth"
)

const testSigningKey = "test-signing-key"

// newTestClient returns a persistence client over a migrated in-memory
// database. A single connection keeps the in-memory schema alive for the
// whole test.
func newTestClient(t *testing.T) (*persistence.Client, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqldb.Close() })

	client, err := auth.NewPersistenceClient(auth.PersistenceConfig{DSN: "file::memory:"}, sqldb, nil)
	require.NoError(t, err)
	require.NoError(t, auth.Migrate(context.Background(), client))

	db, err := auth.BunDB(client)
	require.NoError(t, err)
	return client, db
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	_, db := newTestClient(t)
	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}

func mustRegister(t *testing.T, repo auth.RepositoryManager, username, email, password string) *auth.User {
	t.Helper()

	creds, err := auth.SetPassword(password)
	require.NoError(t, err)

	user := &auth.User{Username: username, Email: email}
	user.SetCredentials(creds)

	user, err = repo.Users().Register(context.Background(), user)
	require.NoError(t, err)
	return user
}

func mustCreateArticle(t *testing.T, repo auth.RepositoryManager, author *auth.User, title string) *auth.Article {
	t.Helper()

	article, err := repo.Articles().Create(context.Background(), &auth.Article{
		Title:    title,
		Body:     "body of " + title,
		AuthorID: author.ID,
	})
	require.NoError(t, err)
	return article
}

type capturingSink struct {
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []auth.ActivityEventType {
	out := make([]auth.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}
