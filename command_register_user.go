package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// UseHashid derives the user id from the email instead of a random UUID
	UseHashid bool `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required, validation.Match(usernamePattern).Error("must be alphanumeric")),
		validation.Field(&e.Email, validation.Required, validation.Match(emailPattern).Error("is invalid")),
		validation.Field(&e.Password, validation.Required.Error("can't be blank")),
	)
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	hasher   *PasswordHasher
	activity ActivitySink
	logger   Logger
}

func NewRegisterUserHandler(repo RepositoryManager, hasher *PasswordHasher, sink ActivitySink, logger Logger) *RegisterUserHandler {
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &RegisterUserHandler{
		repo:     repo,
		hasher:   hasher,
		activity: normalizeActivitySink(sink),
		logger:   normalizeLogger(logger),
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Username = strings.ToLower(strings.TrimSpace(event.Username))
	event.Email = strings.ToLower(strings.TrimSpace(event.Email))

	if err := validationFailed(event.Validate()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	creds, err := h.hasher.SetPassword(ctx, event.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username: event.Username,
		Email:    event.Email,
	}
	user.SetCredentials(creds)

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().RegisterTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	return user, nil
}
