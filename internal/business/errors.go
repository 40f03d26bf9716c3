package business

import "errors"

var (
	// ErrBusinessNotFound is returned when no record exists for a slug
	ErrBusinessNotFound = errors.New("business not found")

	// ErrInvalidSlug is returned when the slug is not lowercase kebab-case
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrMissingName is returned when the record has no name
	ErrMissingName = errors.New("name is required")

	// ErrInvalidEmail is returned when the contact email is malformed
	ErrInvalidEmail = errors.New("contact email is invalid")

	// ErrInvalidTimezone is returned when the timezone is not a known IANA name
	ErrInvalidTimezone = errors.New("timezone is invalid")
)
