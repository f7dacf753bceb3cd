package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Articles interface {
	Create(ctx context.Context, article *Article) (*Article, error)
	CreateTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Article, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Article, error)
	List(ctx context.Context, limit, offset int) ([]*Article, int, error)

	Update(ctx context.Context, article *Article, columns ...string) (*Article, error)
	UpdateTx(ctx context.Context, tx bun.IDB, article *Article, columns ...string) (*Article, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	SetFavoritesCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, count int) error
}

type articles struct {
	repo repository.Repository[*Article]
	db   *bun.DB
	now  func() time.Time
}

var _ Articles = (*articles)(nil)

type ArticlesOption func(*articles)

// WithArticlesClock replaces time.Now for created_at and updated_at
func WithArticlesClock(now func() time.Time) ArticlesOption {
	return func(a *articles) {
		if now != nil {
			a.now = now
		}
	}
}

func NewArticlesRepository(db *bun.DB, opts ...ArticlesOption) Articles {
	handlers := repository.ModelHandlers[*Article]{
		NewRecord: func() *Article { return &Article{} },
		GetID: func(a *Article) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Article, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	}

	repoArticles := &articles{
		repo: repository.NewRepository[*Article](db, handlers),
		db:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoArticles)
		}
	}
	return repoArticles
}

func (r *articles) Create(ctx context.Context, article *Article) (*Article, error) {
	return r.CreateTx(ctx, r.db, article)
}

// CreateTx inserts the article, assigning a slug first when it has none.
// A slug collision on the unique index comes back as NewSlugTakenError, the
// caller decides whether to retry with a fresh slug.
func (r *articles) CreateTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error) {
	if article == nil {
		return nil, goerrors.New("article is required", goerrors.CategoryBadInput)
	}

	if err := article.EnsureSlug(); err != nil {
		return nil, err
	}

	if article.TagList == nil {
		article.TagList = []string{}
	}

	now := r.now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now

	created, err := r.repo.CreateTx(ctx, tx, article)
	if err != nil {
		mapped := mapUniqueViolation(err, "slug")
		if IsSlugTaken(mapped) {
			slugCollisions.Inc()
		}
		return nil, mapped
	}

	return created, nil
}

func (r *articles) GetByID(ctx context.Context, id uuid.UUID) (*Article, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *articles) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Article, error) {
	return r.getBy(ctx, tx, "id", id.String())
}

func (r *articles) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	return r.GetBySlugTx(ctx, r.db, slug)
}

func (r *articles) GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Article, error) {
	return r.getBy(ctx, tx, "slug", slug)
}

func (r *articles) getBy(ctx context.Context, tx bun.IDB, column, value string) (*Article, error) {
	record, err := r.repo.GetTx(ctx, tx,
		repository.Relation("Author"),
		repository.SelectBy(column, "=", value),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, articleNotFound(value)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load article")
	}

	return record, nil
}

const (
	// DefaultListLimit is used when List is called without a positive limit
	DefaultListLimit = 20
	// MaxListLimit caps the page size
	MaxListLimit = 100
)

// ClampPage bounds limit to 1..MaxListLimit, falling back to
// DefaultListLimit when it is not positive, and floors offset at zero.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns the newest articles first and the total count
func (r *articles) List(ctx context.Context, limit, offset int) ([]*Article, int, error) {
	limit, offset = ClampPage(limit, offset)

	records, total, err := r.repo.ListTx(ctx, r.db,
		repository.Relation("Author"),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at DESC")
		}),
		repository.Paginate(limit, offset),
	)
	if err != nil && !repository.IsNoRowError(err) {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list articles")
	}

	return records, total, nil
}

func (r *articles) Update(ctx context.Context, article *Article, columns ...string) (*Article, error) {
	return r.UpdateTx(ctx, r.db, article, columns...)
}

// UpdateTx writes the given columns plus updated_at. Slug is never written
// here, it is fixed at creation.
func (r *articles) UpdateTx(ctx context.Context, tx bun.IDB, article *Article, columns ...string) (*Article, error) {
	if article == nil || article.ID == uuid.Nil {
		return nil, goerrors.New("article id is required", goerrors.CategoryBadInput)
	}

	article.UpdatedAt = r.now().UTC()
	columns = append(columns, "updated_at")

	criteria := make([]repository.UpdateCriteria, 0, len(columns))
	for _, column := range columns {
		value, ok := articleColumnValue(article, column)
		if !ok {
			continue
		}
		criteria = append(criteria, repository.UpdateSetColumn(column, value))
	}

	updated, err := r.repo.UpdateTx(ctx, tx, article, criteria...)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, articleNotFound(article.ID.String())
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update article")
	}

	return updated, nil
}

// articleColumnValue returns the value written for an updatable column.
// Slug and id are not updatable.
func articleColumnValue(a *Article, column string) (any, bool) {
	switch column {
	case "title":
		return a.Title, true
	case "description":
		return a.Description, true
	case "body":
		return a.Body, true
	case "tag_list":
		return a.TagList, true
	case "updated_at":
		return a.UpdatedAt, true
	}
	return nil, false
}

func (r *articles) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *articles) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := r.GetByIDTx(ctx, tx, id); err != nil {
		return err
	}

	if err := r.repo.DeleteWhereTx(ctx, tx, repository.DeleteByID(id.String())); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete article")
	}

	return nil
}

// SetFavoritesCountTx stores a recomputed counter
func (r *articles) SetFavoritesCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, count int) error {
	_, err := r.repo.UpdateTx(ctx, tx, &Article{ID: id},
		repository.UpdateSetColumn("favorites_count", count),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return articleNotFound(id.String())
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store favorites count")
	}

	return nil
}
