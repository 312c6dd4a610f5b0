// Package validation validates configuration structs for actorflow and its
// tools, on top of go-playground/validator with a few domain rules.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator interface for custom validation
// PRINCIPLES:
// - ISP: Simple interface with single method
// - DIP: Depend on interface, not concrete types
type Validator interface {
	Validate() error
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	// Validate is the shared validator instance
	Validate *validator.Validate

	nameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

func init() {
	Validate = validator.New()

	Validate.RegisterValidation("actor_name", validateActorName)
	Validate.RegisterValidation("log_level", validateLogLevel)
	Validate.RegisterValidation("listen_addr", validateListenAddr)

	// Report fields by their yaml, then json name
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"yaml", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// Struct validates s against its `validate` tags, then runs its own
// Validate method when it implements Validator.
func Struct(s interface{}) error {
	if err := Validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}
	if v, ok := s.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// formatValidationErrors converts validator errors to our custom format
func formatValidationErrors(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Namespace(),
			Value:   fe.Value(),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min", "gte":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "hostname_port":
		return "must be a host:port address"
	case "actor_name":
		return "must be a valid actor name (alphanumeric, underscore, dot, hyphen)"
	case "listen_addr":
		return "must be a host:port address, port 0 picks a free one"
	case "log_level":
		return "must be a valid log level (debug, info, warn, error)"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

// validateActorName accepts empty names, which are defaulted by the caller.
func validateActorName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name == "" || (len(name) <= 100 && nameRe.MatchString(name))
}

// validateListenAddr accepts host:port with port 0..65535.
func validateListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}
