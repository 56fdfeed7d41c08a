package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validation failures on write payloads. The schema itself stays lax on
// the range rules, so these are the only place they are enforced.
var (
	ErrMissingRequiredField = errors.New("required field is missing")
	ErrInvalidSentiment     = errors.New("sentiment must be one of positive, negative, neutral, mixed")
	ErrOutOfRange           = errors.New("value outside its allowed range")
)

// Validate checks the restaurant against the application-layer rules.
func (r *Restaurant) Validate() error {
	return translate(validate.Struct(r))
}

// Validate checks the entry against the application-layer rules.
func (e *Entry) Validate() error {
	return translate(validate.Struct(e))
}

// Validate checks the update against the application-layer rules.
func (u *EntryUpdate) Validate() error {
	return translate(validate.Struct(u))
}

// translate maps validator failures onto the domain error set, keeping the
// offending field in the message.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: %w", fe.Field(), ErrMissingRequiredField)
	case "oneof":
		return fmt.Errorf("%s %q: %w", fe.Field(), fe.Value(), ErrInvalidSentiment)
	default:
		return fmt.Errorf("%s %v: %w", fe.Field(), fe.Value(), ErrOutOfRange)
	}
}
