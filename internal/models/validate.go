package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Platforms are the accepted target platform identifiers.
var Platforms = []string{"youtube", "tiktok", "shorts"}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return IsValidPlatform(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsValidPlatform reports whether p is one of Platforms.
func IsValidPlatform(p string) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ValidationError maps field paths to human-readable messages.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
}

// Error implements the error interface. Fields are listed in sorted order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the request and returns a *ValidationError listing every invalid field.
func (r *BacktestRequest) Validate() error {
	return validateStruct(r)
}

// Validate checks the query. All fields are optional; a non-empty platform must be known.
func (q *QueryDescriptor) Validate() error {
	return validateStruct(q)
}

func validateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fieldPath(fe.Namespace())] = message(fe)
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace ("BacktestRequest.strategy.title").
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "platform":
		return fmt.Sprintf("must be one of %s", strings.Join(Platforms, ", "))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
