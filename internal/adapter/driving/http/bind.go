package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			tag := fld.Tag.Get(key)
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag != "" && tag != "-" {
				return tag
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("reponame", func(fl validator.FieldLevel) bool {
		return application.ValidateRepoName(fl.Field().String()) == nil
	})

	return v
}

// decodeJSON reads a single JSON object from the body into dst and validates
// it. Unknown fields and trailing data are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}

	return validateStruct(dst)
}

// validateStruct runs the struct's validate tags and turns the first failure
// into a short message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "required_with":
		return fmt.Errorf("%s is required with %s", fe.Field(), strings.ToLower(fe.Param()))
	case "excluded_with":
		return fmt.Errorf("%s cannot be combined with %s", fe.Field(), strings.ToLower(fe.Param()))
	case "reponame":
		return fmt.Errorf("%s: expected owner/repo format", fe.Field())
	case "datetime":
		return fmt.Errorf("%s: expected YYYY-MM-DD", fe.Field())
	default:
		return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
