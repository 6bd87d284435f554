package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// validate holds the settings and caches for validating request struct
// values.
var validate *validator.Validate

// translator is a cache of locale and tag information.
var translator ut.Translator

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	translator, _ = ut.New(en.New()).GetTranslator("en")
}

// Decode reads the body of an HTTP request looking for a JSON document and
// unmarshals it into the provided value, then runs validator/v10's struct
// validation (honoring any `validate:"..."` tags) and surfaces every
// failing field in one FieldErrors value rather than stopping at the
// first.
func Decode(r *http.Request, val any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(val); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := validate.Struct(val); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		return parseValidationErrors(verrors)
	}

	return nil
}

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// FieldErrors represents a collection of field errors, implementing error
// so it can be returned directly from a Handler.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	d := make([]string, len(fe))
	for i, f := range fe {
		d[i] = fmt.Sprintf("%s: %s", f.Field, f.Error)
	}
	return strings.Join(d, ",")
}

func parseValidationErrors(verrors validator.ValidationErrors) error {
	fields := make(FieldErrors, len(verrors))
	for i, v := range verrors {
		fields[i] = FieldError{
			Field: v.Field(),
			Error: v.Translate(translator),
		}
	}
	return fields
}
