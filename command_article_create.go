package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// MaxSlugAttempts bounds how often a colliding slug is regenerated on create
const MaxSlugAttempts = 3

type CreateArticleMessage struct {
	AuthorID    uuid.UUID `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	TagList     []string  `json:"tagList"`
}

func (e CreateArticleMessage) Type() string { return "article.create" }

func (e CreateArticleMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Title, validation.Required.Error("can't be blank")),
		validation.Field(&e.Body, validation.Required.Error("can't be blank")),
	)
}

type CreateArticleHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

func NewCreateArticleHandler(repo RepositoryManager, sink ActivitySink, logger Logger) *CreateArticleHandler {
	return &CreateArticleHandler{
		repo:     repo,
		activity: normalizeActivitySink(sink),
		logger:   normalizeLogger(logger),
	}
}

// Execute inserts the article under a fresh slug. On a slug collision a new
// suffix is drawn, up to MaxSlugAttempts inserts in total.
func (h *CreateArticleHandler) Execute(ctx context.Context, event CreateArticleMessage) (*Article, error) {
	if err := validationFailed(event.Validate()); err != nil {
		return nil, err
	}

	if _, err := h.repo.Users().GetByID(ctx, event.AuthorID); err != nil {
		return nil, err
	}

	var err error
	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		article := &Article{
			Title:       event.Title,
			Description: event.Description,
			Body:        event.Body,
			TagList:     event.TagList,
			AuthorID:    event.AuthorID,
		}

		if article, err = h.repo.Articles().Create(ctx, article); err == nil {
			recordActivity(ctx, h.activity, h.logger, ActivityEvent{
				EventType: ActivityEventArticleCreated,
				UserID:    event.AuthorID.String(),
				ObjectID:  article.ID.String(),
				Metadata:  map[string]any{"slug": article.Slug},
			})
			return h.repo.Articles().GetByID(ctx, article.ID)
		}

		if !IsSlugTaken(err) {
			return nil, err
		}

		h.logger.Warn("slug collision on attempt %d of %d", attempt, MaxSlugAttempts)
	}

	return nil, err
}
