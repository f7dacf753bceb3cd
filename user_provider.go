package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// UserFinder is a store we can use to retrieve users
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// UserProvider handles users
type UserProvider struct {
	store  UserFinder
	hasher *PasswordHasher
	logger Logger
}

// NewUserProvider will create a new UserProvider. A nil hasher gets a pool
// sized to GOMAXPROCS.
func NewUserProvider(store UserFinder, hasher *PasswordHasher) *UserProvider {
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyIdentity finds the user by email and checks the password. Unknown
// emails and wrong passwords both return ErrInvalidCredentials, and the
// unknown email path still runs one KDF round.
func (u UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if !IsNotFound(err) && !goerrors.IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
		}
		if _, err := u.hasher.VerifyPassword(ctx, password, dummyCredentials.Salt, dummyCredentials.Hash); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := u.hasher.VerifyPassword(ctx, password, user.Salt, user.Hash)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return NewIdentityFromUser(user), nil
}

func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}
