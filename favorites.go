package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Favorites keeps articles.favorites_count derived from the users favorites
// sets. The set is the source of truth, the counter is recomputed from it
// after every change and never incremented or decremented in place.
type Favorites struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// FavoritesOption configures the Favorites engine
type FavoritesOption func(*Favorites)

// WithFavoritesActivitySink reports favorite and unfavorite events
func WithFavoritesActivitySink(sink ActivitySink) FavoritesOption {
	return func(f *Favorites) {
		f.activity = sink
	}
}

// WithFavoritesLogger sets the logger used for sink failures
func WithFavoritesLogger(logger Logger) FavoritesOption {
	return func(f *Favorites) {
		f.logger = logger
	}
}

// NewFavorites creates the engine
func NewFavorites(repo RepositoryManager, opts ...FavoritesOption) *Favorites {
	f := &Favorites{repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.logger = normalizeLogger(f.logger)
	f.activity = normalizeActivitySink(f.activity)
	return f
}

// AddFavorite puts the article in the user set. Adding a present id is a
// no-op. The counter is not touched.
func (f *Favorites) AddFavorite(ctx context.Context, userID, articleID uuid.UUID) (*User, error) {
	return f.addFavoriteTx(ctx, f.repo.Users(), nil, userID, articleID)
}

// RemoveFavorite takes the article out of the user set. Removing a missing
// id is a no-op. The counter is not touched.
func (f *Favorites) RemoveFavorite(ctx context.Context, userID, articleID uuid.UUID) (*User, error) {
	return f.removeFavoriteTx(ctx, f.repo.Users(), nil, userID, articleID)
}

// RecomputeCount counts the users holding the article in their set, stores
// the result on the article and returns it.
func (f *Favorites) RecomputeCount(ctx context.Context, articleID uuid.UUID) (int, error) {
	var count int
	err := f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		count, err = f.recomputeCountTx(ctx, tx, articleID)
		return err
	})
	return count, err
}

// Favorite adds the article to the user set and refreshes the counter in a
// single transaction. It returns the article with the fresh count.
func (f *Favorites) Favorite(ctx context.Context, userID, articleID uuid.UUID) (*Article, error) {
	article, err := f.toggle(ctx, userID, articleID, true)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, f.activity, f.logger, ActivityEvent{
		EventType: ActivityEventArticleFavorited,
		UserID:    userID.String(),
		ObjectID:  articleID.String(),
		Metadata:  map[string]any{"favorites_count": article.FavoritesCount},
	})

	return article, nil
}

// Unfavorite removes the article from the user set and refreshes the
// counter in a single transaction.
func (f *Favorites) Unfavorite(ctx context.Context, userID, articleID uuid.UUID) (*Article, error) {
	article, err := f.toggle(ctx, userID, articleID, false)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, f.activity, f.logger, ActivityEvent{
		EventType: ActivityEventArticleUnfavorited,
		UserID:    userID.String(),
		ObjectID:  articleID.String(),
		Metadata:  map[string]any{"favorites_count": article.FavoritesCount},
	})

	return article, nil
}

func (f *Favorites) toggle(ctx context.Context, userID, articleID uuid.UUID, add bool) (*Article, error) {
	var article *Article

	err := f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if article, err = f.repo.Articles().GetByIDTx(ctx, tx, articleID); err != nil {
			return err
		}

		if add {
			_, err = f.addFavoriteTx(ctx, f.repo.Users(), tx, userID, articleID)
		} else {
			_, err = f.removeFavoriteTx(ctx, f.repo.Users(), tx, userID, articleID)
		}
		if err != nil {
			return err
		}

		count, err := f.recomputeCountTx(ctx, tx, articleID)
		if err != nil {
			return err
		}
		article.FavoritesCount = count
		return nil
	})

	if err != nil {
		return nil, err
	}
	return article, nil
}

func (f *Favorites) addFavoriteTx(ctx context.Context, repo Users, tx bun.IDB, userID, articleID uuid.UUID) (*User, error) {
	return f.mutateSet(ctx, repo, tx, userID, func(u *User) bool {
		return u.AddFavorite(articleID)
	})
}

func (f *Favorites) removeFavoriteTx(ctx context.Context, repo Users, tx bun.IDB, userID, articleID uuid.UUID) (*User, error) {
	return f.mutateSet(ctx, repo, tx, userID, func(u *User) bool {
		return u.RemoveFavorite(articleID)
	})
}

// mutateSet loads the user, applies the set change and writes it back only
// when the set changed. A nil tx runs on the repository database.
func (f *Favorites) mutateSet(ctx context.Context, repo Users, tx bun.IDB, userID uuid.UUID, change func(*User) bool) (*User, error) {
	var (
		user *User
		err  error
	)

	if tx == nil {
		user, err = repo.GetByID(ctx, userID)
	} else {
		user, err = repo.GetByIDTx(ctx, tx, userID)
	}
	if err != nil {
		return nil, err
	}

	if !change(user) {
		return user, nil
	}

	if tx == nil {
		err = f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return repo.SetFavoritesTx(ctx, tx, user)
		})
	} else {
		err = repo.SetFavoritesTx(ctx, tx, user)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (f *Favorites) recomputeCountTx(ctx context.Context, tx bun.IDB, articleID uuid.UUID) (int, error) {
	count, err := f.repo.Users().CountFavoritedByTx(ctx, tx, articleID)
	if err != nil {
		return 0, err
	}

	if err := f.repo.Articles().SetFavoritesCountTx(ctx, tx, articleID, count); err != nil {
		return 0, err
	}

	return count, nil
}
