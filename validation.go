package auth

import (
	"errors"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	emailPattern    = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// FormatValidationErrorToMap flattens ozzo field errors into the
// {"field": ["message"]} shape used by error responses.
func FormatValidationErrorToMap(err error) map[string][]string {
	out := map[string][]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		out["body"] = []string{err.Error()}
		return out
	}

	keys := make([]string, 0, len(fieldErrs))
	for k := range fieldErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if fieldErrs[k] == nil {
			continue
		}
		out[k] = append(out[k], fieldErrs[k].Error())
	}
	return out
}

// validationFailed converts an ozzo error into NewValidationError, nil stays nil
func validationFailed(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	for field, msgs := range FormatValidationErrorToMap(err) {
		if len(msgs) > 0 {
			fields[field] = msgs[0]
		}
	}
	return NewValidationError(err, fields)
}
