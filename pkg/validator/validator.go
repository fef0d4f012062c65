// Package validator carries the domain validation rules shared by the
// gin binding layer and the model invariants.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// RegisterRules installs the domain rules on a go-playground engine:
//   - timeofday: zero-padded 24h "HH:MM" wall-clock value
//
// hexcolor already ships with the library and covers display tags.
func RegisterRules(v *validator.Validate) {
	// error ignored: registration only fails for an empty tag name
	_ = v.RegisterValidation("timeofday", func(fl validator.FieldLevel) bool {
		return timeOfDayRe.MatchString(fl.Field().String())
	})
}

// IsTimeOfDay reports whether s is a valid "HH:MM" wall-clock value.
// Zero-padded values compare correctly as strings, which the shift
// validation relies on.
func IsTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}
