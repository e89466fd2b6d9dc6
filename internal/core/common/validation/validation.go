package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	errors "github.com/frahmantamala/grievance-management/internal"
	"github.com/go-playground/validator/v10"
)

const (
	MaxGrievanceContent = 5000
	MaxCommentContent   = 2000
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator. Field names in reported errors
// follow the json tag so they match what clients sent.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "query"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		instance = v
	})
	return instance
}

// Struct validates s and converts failures into a VALIDATION_ERROR AppError
// carrying one entry per offending field.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	return convert(err, errors.ErrCodeValidationFailed)
}

// Var validates a single value under the given field name.
func Var(field string, value interface{}, tag string, code errors.ErrorCode) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return errors.NewValidationFieldError(field, message(field, fieldErrs[0]), code)
	}
	return errors.NewValidationFieldError(field, err.Error(), code)
}

func ValidateGrievanceContent(content string) error {
	return Var("content", content, fmt.Sprintf("required,notblank,max=%d", MaxGrievanceContent), errors.ErrCodeInvalidContent)
}

func ValidateCommentContent(content string) error {
	return Var("content", content, fmt.Sprintf("required,notblank,max=%d", MaxCommentContent), errors.ErrCodeInvalidContent)
}

func convert(err error, code errors.ErrorCode) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError(err.Error(), code)
	}

	details := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errors.ValidationError{
			Field:   fe.Field(),
			Message: message(fe.Field(), fe),
			Code:    string(code),
		})
	}

	return errors.NewValidationError("Validation failed", code).
		WithDetails(errors.ValidationErrors{Errors: details})
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
