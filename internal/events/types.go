package events

import "time"

// Event type names written to the outbox.
const (
	TypeAppointmentBooked        = "appointment.booked.v1"
	TypeAppointmentCancelled     = "appointment.cancelled.v1"
	TypeAppointmentStatusChanged = "appointment.status_changed.v1"
	TypeDoctorDeleted            = "doctor.deleted.v1"
)

// AppointmentBookedV1 is emitted when a slot is reserved.
type AppointmentBookedV1 struct {
	AppointmentID   string    `json:"appointment_id"`
	DoctorID        string    `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	PatientPhone    string    `json:"patient_phone"`
	PatientName     string    `json:"patient_name,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	Timezone        string    `json:"timezone"`
	Date            string    `json:"appointment_date"`
	Time            string    `json:"appointment_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Source          string    `json:"source"`
}

// AppointmentCancelledV1 is emitted when an appointment moves to cancelled.
type AppointmentCancelledV1 struct {
	AppointmentID  string    `json:"appointment_id"`
	DoctorID       string    `json:"doctor_id"`
	PreviousStatus string    `json:"previous_status"`
	Reason         string    `json:"reason,omitempty"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Timezone       string    `json:"timezone"`
}

// AppointmentStatusChangedV1 covers admin status edits other than cancellation.
type AppointmentStatusChangedV1 struct {
	AppointmentID  string `json:"appointment_id"`
	DoctorID       string `json:"doctor_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
}

// DoctorDeletedV1 summarizes a deletion cascade.
type DoctorDeletedV1 struct {
	DoctorID              string `json:"doctor_id"`
	RulesDeleted          int64  `json:"rules_deleted"`
	ExceptionsDeleted     int64  `json:"exceptions_deleted"`
	AppointmentsCancelled int64  `json:"appointments_cancelled"`
}
