// Package validation registers foodgram's request rules with gin's
// validator and converts binding failures into field errors.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/foodgram/pkg/foodgram/apperr"
)

var (
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

	setupOnce sync.Once
)

// Setup registers the custom rules on gin's default validator. Safe to call
// more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Register(v)
	})
}

// Register adds the custom rules and JSON field naming to v
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return usernameRegex.MatchString(s) && !strings.EqualFold(s, "me")
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	})
}

// New returns a standalone validator with the custom rules registered
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// FromBinding turns validator failures into an *apperr.ValidationError.
// Other errors (malformed JSON, wrong types) become a non-field error.
func FromBinding(err error) error {
	verr := apperr.NewValidationError()

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add(apperr.NonFieldErrors, "%s", err.Error())
		return verr
	}

	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), "%s", message(fe))
	}
	return verr
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return "ensure this field has no more than " + fe.Param() + " characters"
	case "min":
		return "ensure this field has at least " + fe.Param() + " characters"
	case "len":
		return "ensure this field has exactly " + fe.Param() + " characters"
	case "username":
		return "enter a valid username; only letters, digits and @/./+/-/_ are allowed"
	case "slug":
		return "enter a valid slug of letters, digits, underscores or hyphens"
	case "hexcolor":
		return "enter a valid hex color, e.g. #49B64E"
	}
	return "invalid value"
}
