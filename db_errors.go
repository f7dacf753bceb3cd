package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	sqliteUniquePrefix   = "UNIQUE constraint failed: "
	postgresUniqueMarker = "duplicate key"
)

// mapUniqueViolation turns a driver unique constraint error into
// NewUniqueViolation for the offending column, other errors pass through.
func mapUniqueViolation(err error, fallbackField string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniquePrefix); idx >= 0 {
		// "UNIQUE constraint failed: users.email (2067)"
		rest := msg[idx+len(sqliteUniquePrefix):]
		if end := strings.IndexAny(rest, " ,"); end >= 0 {
			rest = rest[:end]
		}
		if _, column, ok := strings.Cut(rest, "."); ok {
			return withSource(NewUniqueViolation(column), err)
		}
		return withSource(NewUniqueViolation(fallbackField), err)
	}

	if strings.Contains(msg, postgresUniqueMarker) {
		field := fallbackField
		for _, candidate := range []string{"username", "email", "slug"} {
			if strings.Contains(msg, candidate) {
				field = candidate
				break
			}
		}
		return withSource(NewUniqueViolation(field), err)
	}

	return err
}

func withSource(richErr *goerrors.Error, source error) *goerrors.Error {
	richErr.Source = source
	return richErr
}

func identityNotFound(identifier string) *goerrors.Error {
	return goerrors.New(ErrIdentityNotFound.Message, goerrors.CategoryNotFound).
		WithTextCode(TextCodeIdentityNotFound).
		WithCode(ErrIdentityNotFound.Code).
		WithMetadata(map[string]any{"identifier": identifier})
}

func articleNotFound(identifier string) *goerrors.Error {
	return goerrors.New(ErrArticleNotFound.Message, goerrors.CategoryNotFound).
		WithTextCode(TextCodeArticleNotFound).
		WithCode(ErrArticleNotFound.Code).
		WithMetadata(map[string]any{"identifier": identifier})
}
