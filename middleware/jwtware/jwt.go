package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

// ErrJWTMissingOrMalformed is returned when no extractor finds a token
var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

const (
	// DefaultAuthScheme is the custom header prefix, "Authorization: Token <jwt>"
	DefaultAuthScheme = "Token"
	// DefaultContextKey names the request store entry holding the claims
	DefaultContextKey = "user"
)

var defaultTokenLookup = "header:" + router.HeaderAuthorization

// Mode selects what happens when a request carries no usable token
type Mode int

const (
	// Required rejects the request before it reaches the handler
	Required Mode = iota
	// Optional lets the request through anonymously
	Optional
)

func (m Mode) String() string {
	if m == Optional {
		return "optional"
	}
	return "required"
}

// Outcome is the gate decision reported to the Observer
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeAnonymous     Outcome = "anonymous"
	OutcomeRejected      Outcome = "rejected"
)

// AuthClaims is the subset of claims the gate needs
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
}

// TokenValidator turns a raw token into claims
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies TokenValidator
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// ErrorHandler writes or returns the rejection for a Required gate
type ErrorHandler func(ctx router.Context, err error) error

// Observer is notified of every gate decision. err is the validation or
// extraction error, nil when authenticated.
type Observer func(mode Mode, outcome Outcome, err error)

type Config struct {
	Mode         Mode
	Filter       func(router.Context) bool
	ErrorHandler ErrorHandler
	ContextKey   string
	// TokenLookup lists sources as "header:<name>" or "query:<name>",
	// comma separated, tried in order.
	TokenLookup string
	AuthScheme  string
	// TokenValidator is required
	TokenValidator TokenValidator
	// ContextEnricher propagates claims to the request context.Context
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context
	Observer        Observer
}

// New returns the gate middleware. In Required mode any extraction or
// validation failure goes to ErrorHandler. In Optional mode a missing
// header, a foreign scheme and a present but invalid token all continue
// as anonymous.
func New(config ...Config) router.MiddlewareFunc {
	g := newGate(GetDefaultConfig(config...))

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.cfg.Filter != nil && g.cfg.Filter(ctx) {
				return next(ctx)
			}

			claims, err := g.authenticate(ctx)
			if err != nil {
				if g.cfg.Mode == Optional {
					g.observe(OutcomeAnonymous, err)
					return next(ctx)
				}
				g.observe(OutcomeRejected, err)
				return g.cfg.ErrorHandler(ctx, err)
			}

			ctx.Set(g.cfg.ContextKey, claims)
			if g.cfg.ContextEnricher != nil {
				ctx.SetContext(g.cfg.ContextEnricher(ctx.Context(), claims))
			}
			g.observe(OutcomeAuthenticated, nil)

			return next(ctx)
		}
	}
}

type gate struct {
	cfg        Config
	extractors []JWTExtractor
}

func newGate(cfg Config) *gate {
	return &gate{
		cfg:        cfg,
		extractors: GetExtractors(cfg.TokenLookup, cfg.AuthScheme),
	}
}

func (g *gate) authenticate(ctx router.Context) (AuthClaims, error) {
	raw, err := ExtractRawToken(ctx, g.extractors)
	if err != nil {
		return nil, err
	}
	return g.cfg.TokenValidator.Validate(raw)
}

func (g *gate) observe(outcome Outcome, err error) {
	if g.cfg.Observer != nil {
		g.cfg.Observer(g.cfg.Mode, outcome, err)
	}
}

// GetClaims returns the claims the gate stored under key
func GetClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	claims, ok := ctx.Get(key, nil).(AuthClaims)
	return claims, ok
}

// GetDefaultConfig fills the zero fields of the first config. It panics
// without a TokenValidator.
func GetDefaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, _ error) error {
			return ctx.JSON(401, map[string]any{
				"errors": map[string][]string{
					"authorization": {"invalid or expired token"},
				},
			})
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}

	return cfg
}

// JWTExtractor pulls a raw token out of the request
type JWTExtractor func(ctx router.Context) (string, error)

// ExtractRawToken runs extractors in order and returns the first token found
func ExtractRawToken(ctx router.Context, extractors []JWTExtractor) (string, error) {
	for _, extract := range extractors {
		if raw, err := extract(ctx); err == nil && raw != "" {
			return raw, nil
		}
	}
	return "", ErrJWTMissingOrMalformed
}

// GetExtractors parses a lookup such as "header:Authorization,query:token".
// Unknown sources are skipped.
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	authScheme := DefaultAuthScheme
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	var extractors []JWTExtractor
	for _, source := range strings.Split(tokenLookup, ",") {
		kind, name, ok := strings.Cut(strings.TrimSpace(source), ":")
		if !ok {
			continue
		}
		kind, name = strings.TrimSpace(kind), strings.TrimSpace(name)

		switch kind {
		case "header":
			extractors = append(extractors, fromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, fromQuery(name))
		}
	}
	return extractors
}

// fromHeader matches the scheme exactly: "Token" is accepted, "token" and
// "Bearer" are not.
func fromHeader(header, authScheme string) JWTExtractor {
	return func(ctx router.Context) (string, error) {
		return parseAuthHeader(ctx.Header(header), authScheme)
	}
}

func parseAuthHeader(value, authScheme string) (string, error) {
	scheme, token, found := strings.Cut(value, " ")
	if !found || scheme != authScheme {
		return "", ErrJWTMissingOrMalformed
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrJWTMissingOrMalformed
	}
	return token, nil
}

func fromQuery(param string) JWTExtractor {
	return func(ctx router.Context) (string, error) {
		if token := ctx.Query(param, ""); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}
