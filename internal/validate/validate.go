package validate

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	v      *validator.Validate
	slugRe = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func init() {
	v = validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	})
}

// IsSlug reports whether s contains only lowercase letters, digits and hyphens.
func IsSlug(s string) bool {
	return slugRe.MatchString(s)
}

// Struct validates i against its `validate` struct tags.
func Struct(i interface{}) error {
	if i == nil {
		return fmt.Errorf("data to validate is nil")
	}

	return v.Struct(i)
}
