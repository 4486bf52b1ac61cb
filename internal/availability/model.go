package availability

import (
	"strings"
	"time"
)

// RecurrenceType controls how a rule repeats.
type RecurrenceType string

const (
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceSingle  RecurrenceType = "single"
)

func (t RecurrenceType) Valid() bool {
	switch t {
	case RecurrenceWeekly, RecurrenceDaily, RecurrenceMonthly, RecurrenceSingle:
		return true
	}
	return false
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Rule is a recurring window in which a doctor works.
type Rule struct {
	ID             string         `json:"id"`
	DoctorID       string         `json:"doctor_id"`
	RecurrenceType RecurrenceType `json:"recurrence_type"`
	DayOfWeek      *int           `json:"day_of_week,omitempty"`
	Date           string         `json:"date,omitempty"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	StartDate      string         `json:"start_date,omitempty"`
	EndDate        string         `json:"end_date,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RuleInput is the admin payload for a rule.
type RuleInput struct {
	RecurrenceType RecurrenceType `json:"recurrence_type"`
	DayOfWeek      *int           `json:"day_of_week"`
	Date           string         `json:"date"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	StartDate      string         `json:"start_date"`
	EndDate        string         `json:"end_date"`
}

func (in *RuleInput) Validate() error {
	in.RecurrenceType = RecurrenceType(strings.ToLower(strings.TrimSpace(string(in.RecurrenceType))))
	if !in.RecurrenceType.Valid() {
		return ErrInvalidRecurrence
	}
	switch in.RecurrenceType {
	case RecurrenceWeekly:
		if in.DayOfWeek == nil || *in.DayOfWeek < 0 || *in.DayOfWeek > 6 {
			return ErrInvalidDayOfWeek
		}
	case RecurrenceMonthly, RecurrenceSingle:
		if !validDate(in.Date) {
			return ErrInvalidDate
		}
	}
	for _, d := range []string{in.StartDate, in.EndDate} {
		if d != "" && !validDate(d) {
			return ErrInvalidDate
		}
	}
	return validateRange(in.StartTime, in.EndTime)
}

func (in *RuleInput) apply(r *Rule) {
	r.RecurrenceType = in.RecurrenceType
	r.DayOfWeek = nil
	if in.RecurrenceType == RecurrenceWeekly {
		dow := *in.DayOfWeek
		r.DayOfWeek = &dow
	}
	r.Date = in.Date
	r.StartTime = in.StartTime
	r.EndTime = in.EndTime
	r.StartDate = in.StartDate
	r.EndDate = in.EndDate
}

// Exception marks a one-off change to a doctor's availability on a date.
type Exception struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExceptionInput is the admin payload for an exception.
type ExceptionInput struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

func (in *ExceptionInput) Validate() error {
	if !validDate(in.Date) {
		return ErrInvalidDate
	}
	in.Reason = strings.TrimSpace(in.Reason)
	return validateRange(in.StartTime, in.EndTime)
}

func (in *ExceptionInput) apply(e *Exception) {
	e.Date = in.Date
	e.StartTime = in.StartTime
	e.EndTime = in.EndTime
	e.Reason = in.Reason
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// validateRange requires zero-padded HH:mm values so that string comparison
// orders them the same way as clock time.
func validateRange(start, end string) error {
	s, err := time.Parse(clockLayout, start)
	if err != nil || len(start) != 5 {
		return ErrInvalidTimeRange
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil || len(end) != 5 {
		return ErrInvalidTimeRange
	}
	if !s.Before(e) {
		return ErrInvalidTimeRange
	}
	return nil
}
