package model

import "time"

// Schedule is a doctor's recurring weekly availability between two dates.
type Schedule struct {
	ID             string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DoctorID       string     `json:"doctor_id" bson:"doctor_id" validate:"required,mongodb"`
	StartDate      string     `json:"start_date" bson:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string     `json:"end_date" bson:"end_date" validate:"required,datetime=2006-01-02"`
	DaysOfWeek     WeekdaySet `json:"days_of_week" bson:"days_of_week" validate:"weekdays"`
	DailyStartTime string     `json:"daily_start_time" bson:"daily_start_time" validate:"required,hhmm"`
	DailyEndTime   string     `json:"daily_end_time" bson:"daily_end_time" validate:"required,hhmm"`
	IsActive       bool       `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ScheduleUpdate replaces the window, weekdays and times of a schedule.
type ScheduleUpdate struct {
	StartDate      string     `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string     `json:"end_date" validate:"required,datetime=2006-01-02"`
	DaysOfWeek     WeekdaySet `json:"days_of_week" validate:"weekdays"`
	DailyStartTime string     `json:"daily_start_time" validate:"required,hhmm"`
	DailyEndTime   string     `json:"daily_end_time" validate:"required,hhmm"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

func (s *Schedule) Apply(update *ScheduleUpdate) {
	s.StartDate = update.StartDate
	s.EndDate = update.EndDate
	s.DaysOfWeek = update.DaysOfWeek
	s.DailyStartTime = update.DailyStartTime
	s.DailyEndTime = update.DailyEndTime
	s.IsActive = true
	if update.IsActive != nil {
		s.IsActive = *update.IsActive
	}
}

// NewSchedule is the create request for a schedule.
type NewSchedule struct {
	DoctorID string `json:"doctor_id" validate:"required,mongodb"`
	ScheduleUpdate
}

func (n *NewSchedule) Schedule() *Schedule {
	sc := &Schedule{DoctorID: n.DoctorID}
	sc.Apply(&n.ScheduleUpdate)
	return sc
}

// ScheduleDeletion reports what a schedule deletion did to its slots.
type ScheduleDeletion struct {
	ScheduleID    string `json:"schedule_id"`
	DeletedSlots  int64  `json:"deleted_slots"`
	DetachedSlots int64  `json:"detached_slots"`
}
