package doctors

import (
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultTimezone   = "Europe/Istanbul"
	DefaultSlotLength = 15
)

// Doctor is a practitioner who can receive appointments.
type Doctor struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Specialty  string    `json:"specialty,omitempty"`
	Timezone   string    `json:"timezone"`
	SlotLength int       `json:"slot_length"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName is how the dashboard and notifications refer to the doctor.
func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Location resolves the doctor's timezone, falling back when it is empty or unknown.
func (d *Doctor) Location(fallback *time.Location) *time.Location {
	if d != nil && d.Timezone != "" {
		if loc, err := time.LoadLocation(d.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// Input is the admin payload for creating or replacing a doctor.
type Input struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Specialty  string `json:"specialty"`
	Timezone   string `json:"timezone"`
	SlotLength *int   `json:"slot_length"`
	Active     *bool  `json:"active"`
}

// Normalize trims fields and applies defaults for omitted values.
func (in *Input) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Specialty = strings.TrimSpace(in.Specialty)
	in.Timezone = strings.TrimSpace(in.Timezone)
	if in.Timezone == "" {
		in.Timezone = DefaultTimezone
	}
	if in.SlotLength == nil {
		v := DefaultSlotLength
		in.SlotLength = &v
	}
	if in.Active == nil {
		v := true
		in.Active = &v
	}
}

// Validate checks a normalized input.
func (in *Input) Validate() error {
	if in.FirstName == "" || in.LastName == "" {
		return ErrInvalidName
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	if in.SlotLength == nil || *in.SlotLength <= 0 {
		return ErrInvalidSlotLength
	}
	return nil
}

// Apply copies the input onto d.
func (in *Input) Apply(d *Doctor) {
	d.FirstName = in.FirstName
	d.LastName = in.LastName
	d.Specialty = in.Specialty
	d.Timezone = in.Timezone
	d.SlotLength = *in.SlotLength
	d.Active = *in.Active
}

// CascadeResult counts what a doctor deletion removed.
type CascadeResult struct {
	DoctorID              string `json:"doctor_id"`
	RulesDeleted          int64  `json:"rules_deleted"`
	ExceptionsDeleted     int64  `json:"exceptions_deleted"`
	AppointmentsCancelled int64  `json:"appointments_cancelled"`
}
