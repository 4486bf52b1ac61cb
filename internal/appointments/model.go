package appointments

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Source records which channel created an appointment.
type Source string

const (
	SourceWebhook Source = "retell_webhook"
	SourceManual  Source = "manual"
	SourceAdmin   Source = "admin"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Appointment is a booked slot. ScheduledAt is the single authoritative
// instant; AppointmentDate and AppointmentTime are its wall-clock rendering in
// Timezone and are never stored.
type Appointment struct {
	ID               string          `json:"id"`
	DoctorID         string          `json:"doctor_id"`
	DoctorName       string          `json:"doctor_name,omitempty"`
	PatientPhone     string          `json:"patient_phone"`
	PatientFirstName string          `json:"patient_first_name,omitempty"`
	PatientLastName  string          `json:"patient_last_name,omitempty"`
	PatientTCNumber  string          `json:"patient_tc_number,omitempty"`
	ScheduledAt      time.Time       `json:"scheduled_at"`
	Timezone         string          `json:"timezone"`
	AppointmentDate  string          `json:"appointment_date"`
	AppointmentTime  string          `json:"appointment_time"`
	DurationMinutes  int             `json:"duration_minutes"`
	Status           Status          `json:"status"`
	Source           Source          `json:"source"`
	RawPayload       json.RawMessage `json:"raw_payload,omitempty"`
	RequestedAt      time.Time       `json:"requested_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// localize fills the derived wall-clock fields from ScheduledAt.
func (a *Appointment) localize() {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := a.ScheduledAt.In(loc)
	a.AppointmentDate = local.Format(dateLayout)
	a.AppointmentTime = local.Format(clockLayout)
}

// PatientName joins the optional name parts.
func (a *Appointment) PatientName() string {
	switch {
	case a.PatientFirstName == "":
		return a.PatientLastName
	case a.PatientLastName == "":
		return a.PatientFirstName
	}
	return a.PatientFirstName + " " + a.PatientLastName
}

// BookingRequest carries everything needed to reserve a slot.
type BookingRequest struct {
	DoctorID         string
	Phone            string
	Date             string
	Time             string
	PatientFirstName string
	PatientLastName  string
	PatientTCNumber  string
	DurationMinutes  int
	Source           Source
	RawPayload       json.RawMessage
}

// ManualBookingRequest is the admin payload for staff-entered appointments.
type ManualBookingRequest struct {
	DoctorID         string `json:"doctor_id"`
	PatientPhone     string `json:"patient_phone"`
	PatientFirstName string `json:"patient_first_name"`
	PatientLastName  string `json:"patient_last_name"`
	PatientTCNumber  string `json:"patient_tc_number"`
	AppointmentDate  string `json:"appointment_date"`
	AppointmentTime  string `json:"appointment_time"`
	DurationMinutes  int    `json:"duration_minutes"`
}

// ListFilter narrows the admin appointment list. Date is a wall-clock date in
// the appointment's own timezone.
type ListFilter struct {
	Status   Status
	Date     string
	DoctorID string
	Limit    int
	Offset   int
}
