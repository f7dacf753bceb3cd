package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateArticleMessage struct {
	UserID uuid.UUID
	Slug   string
	Patch  ArticlePatch
}

func (e UpdateArticleMessage) Type() string { return "article.update" }

func (e UpdateArticleMessage) Validate() error {
	return validation.Errors{
		"title": validation.Validate(e.Patch.Title, validation.NilOrNotEmpty.Error("can't be blank")),
		"body":  validation.Validate(e.Patch.Body, validation.NilOrNotEmpty.Error("can't be blank")),
	}.Filter()
}

// UpdateArticleHandler applies a partial update, only the author may do so.
// The slug is kept even when the title changes.
type UpdateArticleHandler struct {
	repo RepositoryManager
}

func NewUpdateArticleHandler(repo RepositoryManager) *UpdateArticleHandler {
	return &UpdateArticleHandler{repo: repo}
}

func (h *UpdateArticleHandler) Execute(ctx context.Context, event UpdateArticleMessage) (*Article, error) {
	if err := validationFailed(event.Validate()); err != nil {
		return nil, err
	}

	var article *Article
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if article, err = h.repo.Articles().GetBySlugTx(ctx, tx, event.Slug); err != nil {
			return err
		}

		if !article.IsOwnedBy(event.UserID) {
			return ErrForbidden
		}

		columns := event.Patch.Apply(article)
		if len(columns) == 0 {
			return nil
		}

		article, err = h.repo.Articles().UpdateTx(ctx, tx, article, columns...)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "article update transaction failed")
	}

	return article, nil
}
