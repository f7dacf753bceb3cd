package auth

import (
	"context"
	"runtime"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher runs the KDF with bounded parallelism. Hashing is CPU bound
// on purpose, the pool keeps a burst of logins from taking every core away
// from unrelated requests.
type PasswordHasher struct {
	sem     *semaphore.Weighted
	workers int
}

// NewPasswordHasher creates a pool with the given number of workers,
// zero or less means GOMAXPROCS.
func NewPasswordHasher(workers int) *PasswordHasher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: workers,
	}
}

// Workers returns the pool size
func (h *PasswordHasher) Workers() int {
	return h.workers
}

// SetPassword derives new credentials once a worker slot is free
func (h *PasswordHasher) SetPassword(ctx context.Context, password string) (Credentials, error) {
	if password == "" {
		return Credentials{}, ErrNoEmptyString
	}

	if err := h.acquire(ctx); err != nil {
		return Credentials{}, err
	}
	defer h.sem.Release(1)

	return SetPassword(password)
}

// VerifyPassword checks the password once a worker slot is free. The error
// is only set when the context ends before a slot is available.
func (h *PasswordHasher) VerifyPassword(ctx context.Context, password, salt, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	return VerifyPassword(password, salt, hash), nil
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		err = h.sem.Acquire(ctx, 1)
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled while waiting for password hasher")
	}
	return nil
}
