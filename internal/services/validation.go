package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type validationModeKey struct{}

var (
	validate     *validator.Validate
	validateOnce sync.Once
	indexPattern = regexp.MustCompile(`\[(\d+)\]`)
)

// Validator returns the shared payload validator. Field names are reported
// by their JSON name and the tag required_on_create enforces presence only
// when a record is being created; a provided string must still be non blank.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidationCtx("required_on_create", requiredOnCreate, true)
		_ = validate.RegisterValidation("max_bytes", maxBytes)
	})
	return validate
}

func requiredOnCreate(ctx context.Context, fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		if field.IsNil() {
			creating, _ := ctx.Value(validationModeKey{}).(bool)
			return !creating
		}
		return true
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	}
	return true
}

// maxBytes limits the encoded length of a string, unlike max which counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// ValidatePayload checks p, returning a *ValidationError on failure.
func ValidatePayload(ctx context.Context, p interface{}, creating bool) error {
	ctx = context.WithValue(ctx, validationModeKey{}, creating)
	err := Validator().StructCtx(ctx, p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate payload: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		out.Add(field, message(fe, field))
	}
	return out
}

// fieldPath turns "ProductPayload.items[0].quantity" into "items.0.quantity".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return indexPattern.ReplaceAllString(namespace, ".$1")
}

func message(fe validator.FieldError, field string) string {
	name := field
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "_", " ")

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_on_create", "required_without":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "max", "lte":
		if isString {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "max_bytes":
		return fmt.Sprintf("The %s field must not be greater than %s bytes.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "datetime":
		return fmt.Sprintf("The %s field must match the format %s.", name, fe.Param())
	case "alphanumunicode", "printascii":
		return fmt.Sprintf("The %s field contains invalid characters.", name)
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}
