package model

import "time"

// Slot is a concrete bookable interval. ScheduleID is empty for slots created
// by hand or orphaned by a schedule deletion.
type Slot struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID    string    `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	ScheduleID  string    `json:"schedule_id,omitempty" bson:"schedule_id,omitempty" validate:"omitempty,mongodb"`
	Date        string    `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string    `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime     string    `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// SlotKey is the natural key of a slot, unique in storage.
type SlotKey struct {
	DoctorID  string
	Date      string
	StartTime string
}

func (s *Slot) Key() SlotKey {
	return SlotKey{DoctorID: s.DoctorID, Date: s.Date, StartTime: s.StartTime}
}

// Overlaps reports whether two slots on the same date share any minute.
func (s *Slot) Overlaps(other *Slot) bool {
	return s.Date == other.Date && s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

type SlotFilter struct {
	DoctorID   string
	ScheduleID string
	FromDate   string
	ToDate     string
	Available  *bool
	// Limit caps the result when positive.
	Limit int64
}

type SlotWithAppointment struct {
	Slot
	Appointment *Appointment `json:"appointment,omitempty"`
}

// SlotListing is the capped admin view of slots. Truncated is set when more
// slots matched than Limit.
type SlotListing struct {
	Slots     []*SlotWithAppointment `json:"slots"`
	Limit     int64                  `json:"limit"`
	Truncated bool                   `json:"truncated"`
}

type GenerateRequest struct {
	DoctorID   string `json:"doctor_id" validate:"required,mongodb"`
	ScheduleID string `json:"schedule_id,omitempty" validate:"omitempty,mongodb"`
	FromDate   string `json:"from_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ToDate     string `json:"to_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type GenerateResult struct {
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
}

type DoctorAvailability struct {
	Doctor      DoctorSummary      `json:"doctor"`
	FromDate    string             `json:"from_date"`
	ToDate      string             `json:"to_date"`
	Slots       []*Slot            `json:"slots"`
	SlotsByDate map[string][]*Slot `json:"slots_by_date"`
}
