package doctors

import "errors"

var (
	// ErrDoctorNotFound is returned when no doctor has the requested id.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrInvalidName is returned when first or last name is blank.
	ErrInvalidName = errors.New("first_name and last_name are required")

	// ErrInvalidTimezone is returned for timezones the runtime cannot load.
	ErrInvalidTimezone = errors.New("timezone must be a valid IANA zone")

	// ErrInvalidSlotLength is returned for non-positive slot lengths.
	ErrInvalidSlotLength = errors.New("slot_length must be a positive number of minutes")
)
