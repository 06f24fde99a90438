package validator

import (
	"errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validation"
	"testing"
)

func validUpdate() model.ScheduleUpdate {
	return model.ScheduleUpdate{
		StartDate:      "2026-01-05",
		EndDate:        "2026-01-31",
		DaysOfWeek:     model.WeekdaySet(1<<1 | 1<<3),
		DailyStartTime: "08:00",
		DailyEndTime:   "09:00",
	}
}

func TestValidateNew(t *testing.T) {
	v := NewScheduleValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(n *model.NewSchedule)
		wantField string
	}{
		{"valid", func(n *model.NewSchedule) {}, ""},
		{"single day window", func(n *model.NewSchedule) { n.EndDate = n.StartDate }, ""},
		{"missing doctor", func(n *model.NewSchedule) { n.DoctorID = "" }, "doctor_id"},
		{"end before start date", func(n *model.NewSchedule) { n.EndDate = "2026-01-04" }, "end_date"},
		{"empty weekdays", func(n *model.NewSchedule) { n.DaysOfWeek = 0 }, "days_of_week"},
		{"end time equals start", func(n *model.NewSchedule) { n.DailyEndTime = "08:00" }, "daily_end_time"},
		{"end time before start", func(n *model.NewSchedule) { n.DailyEndTime = "07:30" }, "daily_end_time"},
		{"malformed time", func(n *model.NewSchedule) { n.DailyStartTime = "8:00" }, "daily_start_time"},
		{"padded time", func(n *model.NewSchedule) { n.DailyStartTime = " 10:00" }, "daily_start_time"},
		{"malformed date", func(n *model.NewSchedule) { n.StartDate = "05/01/2026" }, "start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &model.NewSchedule{
				DoctorID:       "65a1b2c3d4e5f60718293a4b",
				ScheduleUpdate: validUpdate(),
			}
			tt.mutate(n)

			err := v.ValidateNew(n)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var errs validation.ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateSchedule_RejectsInvertedWindow(t *testing.T) {
	v := NewScheduleValidator(logger.Discard())

	sc := &model.Schedule{
		DoctorID:       "65a1b2c3d4e5f60718293a4b",
		StartDate:      "2026-02-01",
		EndDate:        "2026-01-01",
		DaysOfWeek:     model.WeekdaySet(1 << 1),
		DailyStartTime: "10:00",
		DailyEndTime:   "09:00",
	}

	var errs validation.ValidationErrors
	if !errors.As(v.Validate(sc), &errs) {
		t.Fatal("expected validation errors")
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %v", errs)
	}
}
