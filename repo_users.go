package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CountFavoritedSQL matches users whose favorites JSON array holds the article id
const CountFavoritedSQL = `EXISTS (SELECT 1 FROM json_each(?TableAlias.favorites) AS fav WHERE fav.value = ?)`

type Users interface {
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)

	Update(ctx context.Context, user *User, columns ...string) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, creds Credentials) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, creds Credentials) error

	SetFavoritesTx(ctx context.Context, tx bun.IDB, user *User) error
	CountFavoritedBy(ctx context.Context, articleID uuid.UUID) (int, error)
	CountFavoritedByTx(ctx context.Context, tx bun.IDB, articleID uuid.UUID) (int, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
	now  func() time.Time
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock replaces time.Now for created_at and updated_at
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}
	return repoUsers
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts the user. A taken username or email comes back as
// NewUniqueViolation naming the column.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput)
	}

	a.prepareUserDefaults(user)

	created, err := a.repo.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, mapUniqueViolation(err, "username")
	}

	return created, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.getBy(ctx, tx, "id", id.String(), id.String())
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return a.getBy(ctx, a.db, "email", email, email)
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return a.getBy(ctx, a.db, "username", username, username)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

// GetByIdentifierTx tries id, email and username in that order, depending
// on what the identifier looks like.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		user, err := a.getBy(ctx, tx, opt.column, opt.value, identifier)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		return user, nil
	}

	return nil, identityNotFound(identifier)
}

func (a *users) getBy(ctx context.Context, tx bun.IDB, column, value, identifier string) (*User, error) {
	record, err := a.repo.GetTx(ctx, tx, repository.SelectBy(column, "=", value))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identityNotFound(identifier)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

func (a *users) Update(ctx context.Context, user *User, columns ...string) (*User, error) {
	return a.UpdateTx(ctx, a.db, user, columns...)
}

// UpdateTx writes the given columns, updated_at is always included. An
// empty column list only touches updated_at.
func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User, columns ...string) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("user id is required", goerrors.CategoryBadInput)
	}

	user.UpdatedAt = a.now().UTC()
	columns = append(columns, "updated_at")

	criteria := make([]repository.UpdateCriteria, 0, len(columns))
	for _, column := range columns {
		value, ok := userColumnValue(user, column)
		if !ok {
			return nil, goerrors.New("unknown user column", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"column": column})
		}
		criteria = append(criteria, repository.UpdateSetColumn(column, value))
	}

	updated, err := a.repo.UpdateTx(ctx, tx, user, criteria...)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identityNotFound(user.ID.String())
		}
		return nil, mapUniqueViolation(err, "username")
	}

	return updated, nil
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, creds Credentials) error {
	return a.UpdatePasswordTx(ctx, a.db, id, creds)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, creds Credentials) error {
	record := &User{ID: id}
	record.SetCredentials(creds)
	_, err := a.UpdateTx(ctx, tx, record, "salt", "hash")
	return err
}

// SetFavoritesTx persists the favorites set of the user
func (a *users) SetFavoritesTx(ctx context.Context, tx bun.IDB, user *User) error {
	if user.Favorites == nil {
		user.Favorites = []uuid.UUID{}
	}
	_, err := a.UpdateTx(ctx, tx, user, "favorites")
	return err
}

func (a *users) CountFavoritedBy(ctx context.Context, articleID uuid.UUID) (int, error) {
	return a.CountFavoritedByTx(ctx, a.db, articleID)
}

// CountFavoritedByTx counts users whose favorites contain the article
func (a *users) CountFavoritedByTx(ctx context.Context, tx bun.IDB, articleID uuid.UUID) (int, error) {
	_, count, err := a.repo.ListTx(ctx, tx,
		repository.SelectColumns("id"),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(CountFavoritedSQL, articleID.String())
		}),
		repository.Paginate(1, 0),
	)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count favorites").
			WithMetadata(map[string]any{"article_id": articleID.String()})
	}
	return count, nil
}

// userColumnValue returns the value written for an updatable column. Explicit
// SET clauses keep empty strings from being dropped as zero values.
func userColumnValue(u *User, column string) (any, bool) {
	switch column {
	case "username":
		return u.Username, true
	case "email":
		return u.Email, true
	case "bio":
		return u.Bio, true
	case "image":
		return u.Image, true
	case "salt":
		return u.Salt, true
	case "hash":
		return u.Hash, true
	case "favorites":
		return u.Favorites, true
	case "updated_at":
		return u.UpdatedAt, true
	}
	return nil, false
}

func (a *users) prepareUserDefaults(record *User) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Normalize()

	if record.Favorites == nil {
		record.Favorites = []uuid.UUID{}
	}

	now := a.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	lowered := strings.ToLower(trimmed)

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  lowered,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  lowered,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
