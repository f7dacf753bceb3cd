package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateUserMessage struct {
	UserID uuid.UUID
	Patch  UserPatch
}

func (e UpdateUserMessage) Type() string { return "user.update" }

func (e UpdateUserMessage) Validate() error {
	p := e.Patch
	return validation.Errors{
		"username": validation.Validate(p.Username, validation.NilOrNotEmpty, validation.Match(usernamePattern).Error("must be alphanumeric")),
		"email":    validation.Validate(p.Email, validation.NilOrNotEmpty, validation.Match(emailPattern).Error("is invalid")),
		"password": validation.Validate(p.Password, validation.NilOrNotEmpty.Error("can't be blank")),
	}.Filter()
}

// UpdateUserHandler applies a partial profile update. A password in the
// patch is re-salted and replaces the stored credentials.
type UpdateUserHandler struct {
	repo     RepositoryManager
	hasher   *PasswordHasher
	activity ActivitySink
	logger   Logger
}

func NewUpdateUserHandler(repo RepositoryManager, hasher *PasswordHasher, sink ActivitySink, logger Logger) *UpdateUserHandler {
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &UpdateUserHandler{
		repo:     repo,
		hasher:   hasher,
		activity: normalizeActivitySink(sink),
		logger:   normalizeLogger(logger),
	}
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) (*User, error) {
	if err := validationFailed(event.Validate()); err != nil {
		return nil, err
	}

	var creds *Credentials
	if event.Patch.Password != nil {
		c, err := h.hasher.SetPassword(ctx, *event.Patch.Password)
		if err != nil {
			return nil, err
		}
		creds = &c
	}

	var user *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if user, err = h.repo.Users().GetByIDTx(ctx, tx, event.UserID); err != nil {
			return err
		}

		columns := event.Patch.Apply(user)
		if creds != nil {
			user.SetCredentials(*creds)
			columns = append(columns, "salt", "hash")
		}

		if len(columns) == 0 {
			return nil
		}

		user, err = h.repo.Users().UpdateTx(ctx, tx, user, columns...)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	if creds != nil {
		recordActivity(ctx, h.activity, h.logger, ActivityEvent{
			EventType: ActivityEventPasswordChanged,
			UserID:    user.ID.String(),
		})
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserUpdated,
		UserID:    user.ID.String(),
	})

	return user, nil
}
