package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"hr-backend/internal/engine"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report json field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateStruct runs the struct tags of s and converts failures into
// error details.
func validateStruct(s any) []engine.ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []engine.ErrorDetail{{Message: err.Error()}}
	}

	details := make([]engine.ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("field '%s' is required", fe.Field())
		case "max":
			msg = fmt.Sprintf("field '%s' must be at most %s characters long", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("field '%s' validation failed on tag '%s'", fe.Field(), fe.Tag())
		}
		details = append(details, engine.ErrorDetail{Field: fe.Field(), Rule: fe.Tag(), Message: msg})
	}
	return details
}
