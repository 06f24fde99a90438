package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsActive reports whether the status holds its slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID           string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TimeSlotID   string            `json:"time_slot_id" bson:"time_slot_id" validate:"required,mongodb"`
	PatientName  string            `json:"patient_name" bson:"patient_name" validate:"required,min=2,max=100"`
	PatientEmail string            `json:"patient_email" bson:"patient_email" validate:"required,email,max=254"`
	PatientPhone string            `json:"patient_phone" bson:"patient_phone" validate:"required,e164"`
	Notes        string            `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`
	Status       AppointmentStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt    time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt    time.Time         `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type PatientInfo struct {
	Name  string `json:"patient_name" validate:"required,min=2,max=100"`
	Email string `json:"patient_email" validate:"required,email,max=254"`
	Phone string `json:"patient_phone" validate:"required,e164"`
	Notes string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type BookingRequest struct {
	TimeSlotID string `json:"time_slot_id" validate:"required,mongodb"`
	PatientInfo
}

type StatusUpdate struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}

// AppointmentView is an appointment joined with its slot and doctor.
type AppointmentView struct {
	Appointment
	Slot   *Slot          `json:"slot,omitempty"`
	Doctor *DoctorSummary `json:"doctor,omitempty"`
}
