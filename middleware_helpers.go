package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-conduit-auth/middleware/jwtware"
)

// GateOption customizes the jwtware configuration built by RequiredAuth and OptionalAuth
type GateOption func(*jwtware.Config)

// WithGateConfig takes context key, scheme and lookup from cfg
func WithGateConfig(cfg Config) GateOption {
	return func(c *jwtware.Config) {
		if cfg == nil {
			return
		}
		c.ContextKey = cfg.GetContextKey()
		c.AuthScheme = cfg.GetAuthScheme()
		c.TokenLookup = cfg.GetTokenLookup()
	}
}

// WithGateLogger logs rejected and fail-open decisions at debug level
func WithGateLogger(logger Logger) GateOption {
	logger = normalizeLogger(logger)
	return func(c *jwtware.Config) {
		next := c.Observer
		c.Observer = func(mode jwtware.Mode, outcome jwtware.Outcome, err error) {
			if err != nil {
				logger.Debug("auth gate %s: %s (%s)", mode, outcome, tokenErrorReason(err))
			}
			if next != nil {
				next(mode, outcome, err)
			}
		}
	}
}

// RequiredAuth rejects requests without a valid "Token <jwt>" header. Every
// token failure kind collapses into ErrUnauthorized, the original error is
// kept as the wrapped source for diagnostics.
func RequiredAuth(validator TokenValidator, opts ...GateOption) router.MiddlewareFunc {
	return newGate(jwtware.Required, validator, opts...)
}

// OptionalAuth attaches the identity when a valid token is present. A
// missing, foreign or invalid token continues as anonymous, it is never
// rejected.
func OptionalAuth(validator TokenValidator, opts ...GateOption) router.MiddlewareFunc {
	return newGate(jwtware.Optional, validator, opts...)
}

func newGate(mode jwtware.Mode, validator TokenValidator, opts ...GateOption) router.MiddlewareFunc {
	cfg := jwtware.Config{
		Mode:            mode,
		ContextKey:      DefaultContextKey,
		AuthScheme:      DefaultAuthScheme,
		TokenLookup:     DefaultTokenLookup,
		TokenValidator:  adaptValidator(validator),
		ContextEnricher: ContextEnricherAdapter,
		ErrorHandler:    unauthorizedHandler,
		Observer:        recordGateDecision,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return jwtware.New(cfg)
}

// ContextEnricherAdapter adapts jwtware.AuthClaims to auth.AuthClaims and stores
// claims in the standard context for downstream handlers.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

func adaptValidator(validator TokenValidator) jwtware.TokenValidator {
	if validator == nil {
		return nil
	}
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		claims, err := validator.Validate(token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// unauthorizedHandler hands the collapsed error to the app error handler
func unauthorizedHandler(_ router.Context, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryAuth, ErrUnauthorized.Message).
		WithTextCode(TextCodeUnauthorized).
		WithCode(ErrUnauthorized.Code).
		WithMetadata(map[string]any{"reason": tokenErrorReason(err)})
}

func recordGateDecision(mode jwtware.Mode, outcome jwtware.Outcome, err error) {
	gateDecisions.WithLabelValues(mode.String(), string(outcome), tokenErrorReason(err)).Inc()
}
