package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteArticleMessage struct {
	UserID uuid.UUID
	Slug   string
}

func (e DeleteArticleMessage) Type() string { return "article.delete" }

// DeleteArticleHandler removes an article owned by the caller. Favorites
// sets referencing it are left as is, the stale ids count towards nothing.
type DeleteArticleHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

func NewDeleteArticleHandler(repo RepositoryManager, sink ActivitySink, logger Logger) *DeleteArticleHandler {
	return &DeleteArticleHandler{
		repo:     repo,
		activity: normalizeActivitySink(sink),
		logger:   normalizeLogger(logger),
	}
}

func (h *DeleteArticleHandler) Execute(ctx context.Context, event DeleteArticleMessage) error {
	var articleID uuid.UUID
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		article, err := h.repo.Articles().GetBySlugTx(ctx, tx, event.Slug)
		if err != nil {
			return err
		}

		if !article.IsOwnedBy(event.UserID) {
			return ErrForbidden
		}

		articleID = article.ID
		return h.repo.Articles().DeleteTx(ctx, tx, article.ID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "article delete transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventArticleDeleted,
		UserID:    event.UserID.String(),
		ObjectID:  articleID.String(),
	})

	return nil
}
