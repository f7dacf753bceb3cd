package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	logger          Logger
	now             func() time.Time
	parser          *jwt.Parser
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock replaces time.Now, used to mint tokens at a fixed instant
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance. tokenExpiration is in
// hours, zero or less means DefaultTokenExpiration.
func NewTokenService(signingKey []byte, tokenExpiration int, logger Logger, opts ...TokenServiceOption) *TokenServiceImpl {
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	ts := &TokenServiceImpl{
		signingKey:      key,
		tokenExpiration: tokenExpiration,
		logger:          normalizeLogger(logger),
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	ts.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
		jwt.WithStrictDecoding(),
	)

	return ts
}

// NewTokenServiceFromConfig builds the service from a Config value
func NewTokenServiceFromConfig(cfg Config, logger Logger, opts ...TokenServiceOption) *TokenServiceImpl {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), logger, opts...)
}

var _ TokenService = (*TokenServiceImpl)(nil)

// Issue creates a signed token for the identity
func (ts *TokenServiceImpl) Issue(identity Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.TokenTTL())),
		},
		UID:  identity.ID(),
		Name: identity.Username(),
	}

	return ts.SignClaims(claims)
}

// TokenTTL is the lifetime of issued tokens
func (ts *TokenServiceImpl) TokenTTL() time.Duration {
	return time.Duration(ts.tokenExpiration) * time.Hour
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string. Failures are one of
// ErrTokenSignatureInvalid, ErrTokenExpired or ErrTokenMalformed. The HMAC
// over the raw header.payload is checked before anything is decoded, so any
// altered byte reports ErrTokenSignatureInvalid.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if err := ts.verifySignature(tokenString); err != nil {
		return nil, err
	}

	token, err := ts.parser.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	})

	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.UserID() == "" {
		return nil, ErrTokenMalformed
	}

	// exp must be strictly after now, at the expiry second the token is dead
	if !claims.Expires().After(ts.now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// verifySignature checks the last segment against the HS256 MAC of
// everything before it. Only a token with no segment separator at all is
// malformed.
func (ts *TokenServiceImpl) verifySignature(tokenString string) error {
	idx := strings.LastIndexByte(tokenString, '.')
	if idx < 0 {
		return ErrTokenMalformed
	}

	sig, err := ts.parser.DecodeSegment(tokenString[idx+1:])
	if err != nil {
		return ErrTokenSignatureInvalid
	}

	if err := jwt.SigningMethodHS256.Verify(tokenString[:idx], sig, ts.signingKey); err != nil {
		return ErrTokenSignatureInvalid
	}

	return nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
