package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate is shared by all handlers; validator caches struct metadata.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates a request payload and flattens the first failure into a
// client-facing message.
func Struct(payload interface{}) error {
	return describe(Validate.Struct(payload), "")
}

// MaxLength checks a free-text field against a configured rune limit.
func MaxLength(field, value string, limit int) error {
	return describe(Validate.Var(value, fmt.Sprintf("max=%d", limit)), field)
}

func describe(err error, field string) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	name := fe.Field()
	if name == "" {
		name = field
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "max":
		return fmt.Errorf("%s must be at most %s characters", name, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", name)
	}
}
