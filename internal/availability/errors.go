package availability

import "errors"

var (
	ErrRuleNotFound      = errors.New("availability rule not found")
	ErrExceptionNotFound = errors.New("availability exception not found")
	ErrDoctorNotFound    = errors.New("doctor not found")

	ErrInvalidRecurrence = errors.New("recurrence_type must be weekly, daily, monthly or single")
	ErrInvalidDayOfWeek  = errors.New("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidDate       = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidTimeRange  = errors.New("start_time and end_time must be HH:mm with start before end")
)
