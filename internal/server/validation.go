package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(field.Name)
		}
		return name
	})
	return v
}

// postFields are the text fields every create and edit must carry.
type postFields struct {
	Title   string `json:"title" validate:"required"`
	Author  string `json:"author" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// validateRequest runs struct tags and maps the first failure to a 400.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return badRequestCode(err, ErrCodeInvalidArgument)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return badRequestCode(fmt.Errorf("%s is required", fe.Field()), ErrCodeMissingRequired)
	case "email":
		return badRequestCode(fmt.Errorf("%s must be a valid email address", fe.Field()), ErrCodeInvalidEmail)
	default:
		return badRequestCode(fmt.Errorf("%s is invalid", fe.Field()), ErrCodeInvalidArgument)
	}
}

func trimFields(values ...*string) {
	for _, v := range values {
		if v != nil {
			*v = strings.TrimSpace(*v)
		}
	}
}
