package appointments

import "errors"

var (
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidPhone        = errors.New("invalid phone number length")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrDoctorInactive      = errors.New("doctor is not accepting appointments")
	ErrInvalidDateTime     = errors.New("invalid date or time format")
	ErrTooSoon             = errors.New("booking must be at least 1 hour in advance")
	ErrTooFar              = errors.New("booking cannot be more than 90 days in advance")
	ErrSlotTaken           = errors.New("time slot already booked")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidStatus       = errors.New("status must be scheduled, confirmed, completed or cancelled")
)
