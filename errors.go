package auth

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds          = "INVALID_CREDENTIALS"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenSignatureInvalid = "TOKEN_SIGNATURE_INVALID"
	TextCodeUnauthorized          = "UNAUTHORIZED"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeUniqueViolation       = "UNIQUE_CONSTRAINT_VIOLATION"
	TextCodeIdentityNotFound      = "IDENTITY_NOT_FOUND"
	TextCodeArticleNotFound       = "ARTICLE_NOT_FOUND"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
	TextCodeValidation            = "VALIDATION_FAILED"
	TextCodeInsecureConfig        = "INSECURE_CONFIG"
)

// ErrInvalidCredentials is returned for unknown identities and wrong
// passwords alike so callers cannot enumerate accounts.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(http.StatusUnprocessableEntity)

// ErrTokenMalformed token could not be decoded into the expected claims
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(http.StatusUnauthorized)

// ErrTokenExpired token expiration is in the past
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(http.StatusUnauthorized)

// ErrTokenSignatureInvalid token signature or algorithm did not verify
var ErrTokenSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenSignatureInvalid).
	WithCode(http.StatusUnauthorized)

// ErrUnauthorized is what the required gate reports, whatever the token problem was
var ErrUnauthorized = goerrors.New("authorization required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(http.StatusUnauthorized)

// ErrForbidden authenticated but not the owner of the resource
var ErrForbidden = goerrors.New("you are not allowed to modify this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(http.StatusForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(http.StatusNotFound)

// ErrArticleNotFound is the error we return for non found articles
var ErrArticleNotFound = goerrors.New("article not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeArticleNotFound).
	WithCode(http.StatusNotFound)

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = goerrors.New("password can't be blank", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(http.StatusUnprocessableEntity).
	WithMetadata(map[string]any{"field": "password", "reason": "can't be blank"})

// NewUniqueViolation reports a collision on a unique field (username, email, slug)
func NewUniqueViolation(field string) *goerrors.Error {
	return goerrors.New(field+" is already taken", goerrors.CategoryConflict).
		WithTextCode(TextCodeUniqueViolation).
		WithCode(http.StatusUnprocessableEntity).
		WithMetadata(map[string]any{
			"field":  field,
			"reason": "is already taken",
		})
}

// NewSlugTakenError is the unique violation raised when an article slug collides
func NewSlugTakenError() *goerrors.Error {
	return NewUniqueViolation("slug")
}

// NewValidationError wraps field errors into a validation error
func NewValidationError(err error, fields map[string]string) *goerrors.Error {
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		meta[k] = v
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid payload").
		WithTextCode(TextCodeValidation).
		WithCode(http.StatusUnprocessableEntity).
		WithMetadata(map[string]any{"fields": meta})
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsSignatureInvalidError reports tokens rejected for their signature or algorithm
func IsSignatureInvalidError(err error) bool {
	return hasTextCode(err, TextCodeTokenSignatureInvalid)
}

// IsInvalidCredentials reports failed logins
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCreds)
}

// IsUniqueViolation reports unique constraint collisions
func IsUniqueViolation(err error) bool {
	return hasTextCode(err, TextCodeUniqueViolation)
}

// IsSlugTaken reports a slug collision
func IsSlugTaken(err error) bool {
	richErr := findTextCode(err, TextCodeUniqueViolation)
	if richErr == nil {
		return false
	}
	field, _ := richErr.Metadata["field"].(string)
	return field == "slug"
}

// IsForbidden reports ownership failures
func IsForbidden(err error) bool {
	return hasTextCode(err, TextCodeForbidden)
}

// IsNotFound reports missing identities or articles
func IsNotFound(err error) bool {
	return hasTextCode(err, TextCodeIdentityNotFound) || hasTextCode(err, TextCodeArticleNotFound)
}

func hasTextCode(err error, code string) bool {
	return findTextCode(err, code) != nil
}

// findTextCode walks the wrap chain, wrapping may reset the text code on
// the outer error.
func findTextCode(err error, code string) *goerrors.Error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if richErr, ok := e.(*goerrors.Error); ok && richErr.TextCode == code {
			return richErr
		}
	}
	return nil
}
