package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// NewServer returns the fiber backed router server. Handler errors go
// through ErrorHandler and a panicking handler becomes a 500 response
// instead of taking the process down.
func NewServer(logger Logger) router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "conduit-auth",
			DisableStartupMessage: true,
			UnescapePath:          true,
			ErrorHandler:          ErrorHandler(logger),
		})
		app.Use(recover.New())
		return app
	})
}

// ErrorBody is the {"errors": {"field": ["message"]}} response shape
type ErrorBody struct {
	Errors map[string][]string `json:"errors"`
}

// StatusFromError maps a typed error to its HTTP status. Token failures all
// collapse to 401, unknown errors are 500.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidCredentials(err), IsUniqueViolation(err), hasTextCode(err, TextCodeValidation), hasTextCode(err, TextCodeEmptyPassword):
		return http.StatusUnprocessableEntity
	case IsForbidden(err):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case hasTextCode(err, TextCodeUnauthorized), IsTokenExpiredError(err), IsMalformedError(err), IsSignatureInvalidError(err):
		return http.StatusUnauthorized
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code > 0 {
			return richErr.Code
		}
		switch richErr.Category {
		case goerrors.CategoryAuth:
			return http.StatusUnauthorized
		case goerrors.CategoryAuthz:
			return http.StatusForbidden
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return http.StatusUnprocessableEntity
		case goerrors.CategoryNotFound:
			return http.StatusNotFound
		case goerrors.CategoryConflict:
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// ErrorResponse builds the field scoped body for err
func ErrorResponse(err error) ErrorBody {
	body := ErrorBody{Errors: map[string][]string{}}

	switch {
	case IsInvalidCredentials(err):
		body.Errors["email or password"] = []string{"is invalid"}
	case IsUniqueViolation(err):
		field := "body"
		if richErr := findTextCode(err, TextCodeUniqueViolation); richErr != nil {
			if f, ok := richErr.Metadata["field"].(string); ok && f != "" {
				field = f
			}
		}
		body.Errors[field] = []string{"is already taken"}
	case hasTextCode(err, TextCodeValidation):
		richErr := findTextCode(err, TextCodeValidation)
		if fields, ok := richErr.Metadata["fields"].(map[string]any); ok {
			for k, v := range fields {
				if msg, ok := v.(string); ok {
					body.Errors[k] = []string{msg}
				}
			}
		}
		if len(body.Errors) == 0 {
			body.Errors["body"] = []string{"is invalid"}
		}
	case hasTextCode(err, TextCodeEmptyPassword):
		body.Errors["password"] = []string{"can't be blank"}
	case IsForbidden(err):
		body.Errors["article"] = []string{"forbidden"}
	case hasTextCode(err, TextCodeArticleNotFound):
		body.Errors["article"] = []string{"not found"}
	case hasTextCode(err, TextCodeIdentityNotFound):
		body.Errors["user"] = []string{"not found"}
	default:
		switch StatusFromError(err) {
		case http.StatusUnauthorized:
			body.Errors["authorization"] = []string{"invalid or missing token"}
		case http.StatusInternalServerError:
			body.Errors["server"] = []string{"unexpected error"}
		default:
			body.Errors["body"] = []string{err.Error()}
		}
	}

	return body
}

// ErrorHandler is the fiber app error handler. It logs the full error with
// its metadata and writes only the field scoped body.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		status := StatusFromError(err)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			if status >= http.StatusInternalServerError {
				logger.Error("%s %s: %s [%s] %s", c.Method(), c.Path(), richErr.Message, richErr.Category, print.MaybePrettyJSON(richErr.Metadata))
			} else {
				logger.Debug("%s %s: %s [%s] %s", c.Method(), c.Path(), richErr.Message, richErr.TextCode, print.MaybePrettyJSON(richErr.Metadata))
			}
		} else if status >= http.StatusInternalServerError {
			logger.Error("%s %s: %v", c.Method(), c.Path(), err)
		}

		return c.Status(status).JSON(ErrorResponse(err))
	}
}
