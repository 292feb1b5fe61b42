// Package validator holds the custom validator/v10 rules used by request
// binding and turns validation failures into readable messages.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/consultation-api/internal/model"
)

const (
	TagClock        = "clock"
	TagCalendarDate = "calendar_date"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Rules maps each custom tag to its check.
var Rules = map[string]validator.Func{
	TagClock:        Clock,
	TagCalendarDate: CalendarDate,
}

// Clock accepts a 24-hour HH:MM string.
func Clock(fl validator.FieldLevel) bool {
	return IsClock(fl.Field().String())
}

func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// CalendarDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func CalendarDate(fl validator.FieldLevel) bool {
	_, err := model.ParseDate(fl.Field().String())
	return err == nil
}

// Register adds every custom rule to v.
func Register(v *validator.Validate) error {
	for tag, fn := range Rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

var messages = map[string]string{
	"required":      "is required",
	"email":         "must be a valid email",
	"uuid":          "must be a valid UUID",
	"oneof":         "must be one of: %s",
	TagClock:        "must be a time in HH:MM format",
	TagCalendarDate: "must be a date in YYYY-MM-DD format",
}

// Describe renders a binding error as "field message; field message". Errors
// that are not validation failures are returned as-is.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "failed " + fe.Tag() + " validation"
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		parts = append(parts, fe.Field()+" "+msg)
	}
	return strings.Join(parts, "; ")
}
