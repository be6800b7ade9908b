package validator

import (
	"errors"
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/medtracker/internal/schedule"
)

// Validator validates structs carrying `validate` tags.
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *playground.Validate
}

// New returns a validator with the domain rules registered:
//   - clock: an HH:MM time of day
//   - weekday: an integer 0..6
func New() Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl playground.FieldLevel) bool {
		_, err := schedule.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl playground.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	})
	return &validator{v: v}
}

func (v *validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe playground.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	case "clock":
		return fmt.Sprintf("%s must be a time of day in HH:MM format, got %q", field, fe.Value())
	case "weekday":
		return fmt.Sprintf("%s must be a weekday between 0 (Sunday) and 6 (Saturday), got %v", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
