package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator exposes the shared validator instance.
func Validator() *validator.Validate { return validate }

// FieldViolation describes one failed validation rule.
type FieldViolation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// DecodeJSON decodes the request body into dst and validates it.
// The returned error is always an *AppError.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAppError("BAD_REQUEST", "request body is required", http.StatusBadRequest, err)
		}
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	return ValidateStruct(dst)
}

// ValidateStruct runs validator tags on v and converts failures to a 422 AppError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	violations := make([]FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		violations = append(violations, FieldViolation{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return NewAppError("VALIDATION_FAILED", "request validation failed", http.StatusUnprocessableEntity, err).WithDetails(violations)
}
