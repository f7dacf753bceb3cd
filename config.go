package auth

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DevelopmentSigningKey is the fixed secret used outside production
	DevelopmentSigningKey = "secret"
	// DefaultTokenExpiration is 60 days, in hours
	DefaultTokenExpiration = 60 * 24
	// DefaultAuthScheme is the Authorization header prefix, note it is not Bearer
	DefaultAuthScheme = "Token"
	// DefaultContextKey is the request store key holding the claims
	DefaultContextKey = "user"
	// DefaultTokenLookup tells the gate where to find the token
	DefaultTokenLookup = "header:Authorization"
	// DefaultSigningMethod is the only algorithm tokens are accepted with
	DefaultSigningMethod = "HS256"

	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

// StaticConfig is an immutable Config value, build it once at startup and
// hand it to the token service and the gate.
type StaticConfig struct {
	Environment     string `koanf:"environment" json:"environment"`
	SigningKey      string `koanf:"secret" json:"-"`
	SigningMethod   string `koanf:"signing_method" json:"signing_method"`
	ContextKey      string `koanf:"context_key" json:"context_key"`
	TokenExpiration int    `koanf:"token_expiration" json:"token_expiration"`
	TokenLookup     string `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme      string `koanf:"auth_scheme" json:"auth_scheme"`
}

var _ Config = StaticConfig{}

// NewStaticConfig fills in defaults. Outside production an empty secret falls
// back to DevelopmentSigningKey.
func NewStaticConfig(environment, signingKey string) StaticConfig {
	cfg := StaticConfig{
		Environment: environment,
		SigningKey:  signingKey,
	}
	return cfg.WithDefaults()
}

// WithDefaults returns a copy with every empty option set to its default
func (c StaticConfig) WithDefaults() StaticConfig {
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.SigningKey == "" && !c.IsProduction() {
		c.SigningKey = DevelopmentSigningKey
	}
	if c.SigningMethod == "" {
		c.SigningMethod = DefaultSigningMethod
	}
	if c.ContextKey == "" {
		c.ContextKey = DefaultContextKey
	}
	if c.TokenExpiration <= 0 {
		c.TokenExpiration = DefaultTokenExpiration
	}
	if c.TokenLookup == "" {
		c.TokenLookup = DefaultTokenLookup
	}
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
	return c
}

// IsProduction reports whether the production rules apply
func (c StaticConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// Validate rejects configurations that must never reach production
func (c StaticConfig) Validate() error {
	if c.SigningMethod != "" && c.SigningMethod != DefaultSigningMethod {
		return goerrors.New("unsupported signing method", goerrors.CategoryValidation).
			WithTextCode(TextCodeInsecureConfig).
			WithCode(http.StatusInternalServerError).
			WithMetadata(map[string]any{"signing_method": c.SigningMethod})
	}

	if !c.IsProduction() {
		if c.SigningKey == "" {
			return goerrors.New("signing key must not be empty", goerrors.CategoryValidation).
				WithTextCode(TextCodeInsecureConfig).
				WithCode(http.StatusInternalServerError)
		}
		return nil
	}

	if strings.TrimSpace(c.SigningKey) == "" {
		return goerrors.New("signing key is required in production", goerrors.CategoryValidation).
			WithTextCode(TextCodeInsecureConfig).
			WithCode(http.StatusInternalServerError)
	}

	if c.SigningKey == DevelopmentSigningKey {
		return goerrors.New("development signing key used in production", goerrors.CategoryValidation).
			WithTextCode(TextCodeInsecureConfig).
			WithCode(http.StatusInternalServerError)
	}

	return nil
}

func (c StaticConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c StaticConfig) GetSigningMethod() string {
	return c.SigningMethod
}

func (c StaticConfig) GetContextKey() string {
	return c.ContextKey
}

func (c StaticConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c StaticConfig) GetTokenLookup() string {
	return c.TokenLookup
}

func (c StaticConfig) GetAuthScheme() string {
	return c.AuthScheme
}
