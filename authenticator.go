package auth

import (
	"context"
	"reflect"
)

type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: NewTokenServiceFromConfig(opts, defLogger{}),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService replaces the service built from Config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token for the identity.
func (s *Auther) Login(ctx context.Context, email, password string) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		loginAttempts.WithLabelValues(loginResult(err)).Inc()
		s.logger.Info("login rejected: %v", err)
		recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return "", nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		loginAttempts.WithLabelValues("error").Inc()
		s.logger.Error("login identity is nil or zero value")
		return "", nil, ErrIdentityNotFound
	}

	token, err := s.tokenService.Issue(identity)
	if err != nil {
		loginAttempts.WithLabelValues("error").Inc()
		s.logger.Error("login failed to issue token: %v", err)
		return "", nil, err
	}

	loginAttempts.WithLabelValues("success").Inc()
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    identity.ID(),
	})

	return token, identity, nil
}

// IdentityFromToken validates the token and resolves the identity it names
func (s *Auther) IdentityFromToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}
	return s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
}

func loginResult(err error) string {
	if IsInvalidCredentials(err) {
		return "invalid_credentials"
	}
	return "error"
}
