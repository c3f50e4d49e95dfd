// Package validation checks request payloads at the HTTP boundary using
// struct tags (`validate:"required,email"`).
//
// Besides the stock validator tags it registers "password": at least one
// uppercase letter, one lowercase letter and one digit, and "maxbytes=N":
// at most N bytes of UTF-8, which is what bcrypt limits.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every rejected field. It matches common.ErrorValidation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error { return common.ErrorValidation }

var messages = map[string]string{
	"email.required":    "Invalid email address",
	"email.email":       "Invalid email address",
	"username.required": "Username must be between 3 and 100 characters",
	"username.min":      "Username must be between 3 and 100 characters",
	"username.max":      "Username must be between 3 and 100 characters",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 8 characters long",
	"password.maxbytes": "Password must be at most 72 bytes long",
	"password.password": "Password must contain at least one uppercase letter, one lowercase letter, and one number",
	"id.uuid":           "Invalid user ID format",
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})

		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return StrongPassword(fl.Field().String())
		})
		_ = validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= n
		})
	})
	return validate
}

// Struct validates s and returns *Error when any field is rejected.
func Struct(s any) error {
	return convert(getValidator().Struct(s))
}

// Var validates a single value reported under field, e.g. Var("id", id, "uuid").
func Var(field string, value any, tag string) error {
	err := getValidator().Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message(field, e.Tag())})
	}
	return out
}

// StrongPassword reports whether p mixes upper case, lower case and digits.
func StrongPassword(p string) bool {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func convert(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: e.Field(), Message: message(e.Field(), e.Tag())})
	}
	return out
}

func message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	default:
		return field + " is invalid"
	}
}
