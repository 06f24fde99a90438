package service

import (
	"context"
	"errors"
	"medbook/internal/events"
	"medbook/internal/memstore"
	scheduleserrors "medbook/internal/schedules/errors"
	slotserrors "medbook/internal/slots/errors"
	"medbook/internal/slots/validator"
	"medbook/pkg/clock"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"strings"
	"testing"
	"time"
)

type fixture struct {
	store    *memstore.Store
	recorder *events.Recorder
	cfg      *config.Config
	service  SlotService
	doctor   *model.Doctor
	schedule *model.Schedule
}

// newFixture pins today to Thursday 2026-01-01 and gives the doctor a
// Monday/Wednesday 08:00-09:00 schedule for January.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	recorder := events.NewRecorder()
	log := logger.Discard()
	cfg := &config.Config{
		Log:                           log,
		Clock:                         clock.NewFixed(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)),
		DefaultExaminationDurationMin: 30,
		GenerationHorizonDays:         90,
		AvailableSlotsDefaultDays:     14,
	}

	doctor := &model.Doctor{Slug: "cuddy", Name: "Lisa Cuddy", ExaminationDuration: 30}
	if err := store.Doctors().Create(ctx, doctor); err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	days, _ := model.NewWeekdaySet(1, 3)
	sc := &model.Schedule{
		DoctorID:       doctor.ID,
		StartDate:      "2026-01-05",
		EndDate:        "2026-01-31",
		DaysOfWeek:     days,
		DailyStartTime: "08:00",
		DailyEndTime:   "09:00",
		IsActive:       true,
	}
	if err := store.Schedules().Create(ctx, sc); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	svc := NewSlotService(
		store.Slots(),
		store.Doctors(),
		store.Schedules(),
		store.Appointments(),
		validator.NewSlotValidator(log),
		recorder,
		cfg,
	)

	return &fixture{
		store:    store,
		recorder: recorder,
		cfg:      cfg,
		service:  svc,
		doctor:   doctor,
		schedule: sc,
	}
}

func (f *fixture) generate(t *testing.T, req *model.GenerateRequest) *model.GenerateResult {
	t.Helper()
	result, err := f.service.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return result
}

func (f *fixture) insertSlot(t *testing.T, date, start, end string, available bool) *model.Slot {
	t.Helper()
	slot := &model.Slot{DoctorID: f.doctor.ID, Date: date, StartTime: start, EndTime: end, IsAvailable: available}
	if err := f.store.Slots().Insert(context.Background(), slot); err != nil {
		t.Fatalf("insert slot: %v", err)
	}
	return slot
}

func (f *fixture) addAppointment(t *testing.T, slotID string, status model.AppointmentStatus) {
	t.Helper()
	err := f.store.Appointments().Create(context.Background(), &model.Appointment{
		TimeSlotID:   slotID,
		PatientName:  "Ada Lovelace",
		PatientEmail: "ada@example.com",
		PatientPhone: "+14155552671",
		Status:       status,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
}

func reason(err error) string {
	r, _ := apperrors.AsAppError(err).Details["reason"].(string)
	return r
}

func TestGenerate_Idempotent(t *testing.T) {
	f := newFixture(t)

	first := f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})
	if first.Generated != 16 || first.Skipped != 0 {
		t.Fatalf("first run = %+v, want 16 generated", first)
	}
	if first.FromDate != "2026-01-01" || first.ToDate != "2026-04-01" {
		t.Errorf("window = %s..%s", first.FromDate, first.ToDate)
	}

	second := f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})
	if second.Generated != 0 || second.Skipped != 16 {
		t.Errorf("second run = %+v, want 16 skipped", second)
	}

	slots, err := f.store.Slots().List(context.Background(), model.SlotFilter{DoctorID: f.doctor.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 16 {
		t.Errorf("stored %d slots, want 16", len(slots))
	}
	for _, slot := range slots {
		if slot.ScheduleID != f.schedule.ID {
			t.Errorf("slot %s %s has schedule %q", slot.Date, slot.StartTime, slot.ScheduleID)
		}
	}

	types := f.recorder.Types()
	if len(types) != 2 || types[0] != events.SlotsGenerated {
		t.Errorf("events = %v", types)
	}
}

func TestGenerate_Window(t *testing.T) {
	tests := []struct {
		name      string
		horizon   int
		req       model.GenerateRequest
		generated int
		toDate    string
		wantErr   string
	}{
		{name: "horizon caps default window", horizon: 7, generated: 4, toDate: "2026-01-08"},
		{name: "horizon caps explicit to", horizon: 7, req: model.GenerateRequest{ToDate: "2026-12-31"}, generated: 4, toDate: "2026-01-08"},
		{name: "explicit range", horizon: 90, req: model.GenerateRequest{FromDate: "2026-01-12", ToDate: "2026-01-14"}, generated: 4, toDate: "2026-01-14"},
		{name: "single day", horizon: 90, req: model.GenerateRequest{FromDate: "2026-01-05", ToDate: "2026-01-05"}, generated: 2, toDate: "2026-01-05"},
		{name: "inverted range", horizon: 90, req: model.GenerateRequest{FromDate: "2026-01-14", ToDate: "2026-01-12"}, wantErr: apperrors.CodeValidation},
		{name: "bad date", horizon: 90, req: model.GenerateRequest{FromDate: "2026-13-01"}, wantErr: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.GenerationHorizonDays = tt.horizon

			req := tt.req
			req.DoctorID = f.doctor.ID
			result, err := f.service.Generate(context.Background(), &req)
			if tt.wantErr != "" {
				if !apperrors.HasCode(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if result.Generated != tt.generated {
				t.Errorf("generated = %d, want %d", result.Generated, tt.generated)
			}
			if result.ToDate != tt.toDate {
				t.Errorf("to_date = %s, want %s", result.ToDate, tt.toDate)
			}
		})
	}
}

func TestGenerate_ScheduleSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown doctor", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Generate(ctx, &model.GenerateRequest{DoctorID: "65a000000000000000000009"})
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("schedule of another doctor", func(t *testing.T) {
		f := newFixture(t)
		other := &model.Doctor{Slug: "wilson", Name: "James Wilson", ExaminationDuration: 20}
		if err := f.store.Doctors().Create(ctx, other); err != nil {
			t.Fatalf("create doctor: %v", err)
		}
		_, err := f.service.Generate(ctx, &model.GenerateRequest{DoctorID: other.ID, ScheduleID: f.schedule.ID})
		if !errors.Is(err, scheduleserrors.ErrNotFound) {
			t.Errorf("expected schedule not found, got %v", err)
		}
	})

	t.Run("inactive schedules are ignored", func(t *testing.T) {
		f := newFixture(t)
		f.schedule.IsActive = false
		if err := f.store.Schedules().Update(ctx, f.schedule.ID, f.schedule); err != nil {
			t.Fatalf("update schedule: %v", err)
		}
		_, err := f.service.Generate(ctx, &model.GenerateRequest{DoctorID: f.doctor.ID})
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("expected not found without active schedules, got %v", err)
		}
		_, err = f.service.Generate(ctx, &model.GenerateRequest{DoctorID: f.doctor.ID, ScheduleID: f.schedule.ID})
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			t.Errorf("expected not found for inactive schedule, got %v", err)
		}
	})

	t.Run("duration comes from the doctor", func(t *testing.T) {
		f := newFixture(t)
		f.doctor.ExaminationDuration = 20
		if err := f.store.Doctors().Update(ctx, f.doctor.ID, f.doctor); err != nil {
			t.Fatalf("update doctor: %v", err)
		}
		result := f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID, FromDate: "2026-01-05", ToDate: "2026-01-05"})
		if result.Generated != 3 {
			t.Errorf("generated = %d, want 3 twenty minute slots", result.Generated)
		}
	})
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})
	f.insertSlot(t, "2025-12-29", "08:00", "08:30", true)

	slots, err := f.store.Slots().List(ctx, model.SlotFilter{DoctorID: f.doctor.ID, FromDate: "2026-01-05", ToDate: "2026-01-05"})
	if err != nil || len(slots) != 2 {
		t.Fatalf("expected two slots on 2026-01-05, got %d (%v)", len(slots), err)
	}
	if err := f.store.Slots().UpdateAvailability(ctx, slots[0].ID, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	f.addAppointment(t, slots[1].ID, model.StatusPending)

	got, err := f.service.ListAvailable(ctx, f.doctor.ID, "", "")
	if err != nil {
		t.Fatalf("list available: %v", err)
	}

	// Default window 2026-01-01..2026-01-15 holds Jan 5, 7, 12 and 14.
	if len(got) != 6 {
		t.Fatalf("expected 6 available slots, got %d", len(got))
	}
	for _, slot := range got {
		if slot.Date < "2026-01-01" || slot.Date > "2026-01-15" {
			t.Errorf("slot outside window: %s", slot.Date)
		}
		if slot.Date == "2026-01-05" {
			t.Errorf("booked slots must be hidden: %s %s", slot.Date, slot.StartTime)
		}
	}
	if got[0].Date != "2026-01-07" || got[0].StartTime != "08:00" {
		t.Errorf("expected ordering by date then time, first is %s %s", got[0].Date, got[0].StartTime)
	}
}

func TestListAvailable_Range(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})

	tests := []struct {
		name     string
		from, to string
		want     int
		wantErr  string
	}{
		{name: "past start is clamped to today", from: "2025-12-01", to: "2026-01-07", want: 4},
		{name: "window entirely in the past", from: "2025-12-01", to: "2025-12-20", want: 0},
		{name: "inverted range", from: "2026-01-10", to: "2026-01-05", wantErr: apperrors.CodeValidation},
		{name: "explicit future range", from: "2026-01-20", to: "2026-01-31", want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.service.ListAvailable(ctx, f.doctor.ID, tt.from, tt.to)
			if tt.wantErr != "" {
				if !apperrors.HasCode(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d slots, want %d", len(got), tt.want)
			}
		})
	}

	if _, err := f.service.ListAvailable(ctx, "", "", ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input without doctor, got %v", err)
	}
}

func TestAvailabilityForDoctor(t *testing.T) {
	f := newFixture(t)
	f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})

	availability, err := f.service.AvailabilityForDoctor(context.Background(), f.doctor.ID, "2026-01-05", "2026-01-07")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if availability.Doctor.ID != f.doctor.ID || availability.Doctor.ExaminationDuration != 30 {
		t.Errorf("doctor summary = %+v", availability.Doctor)
	}
	if len(availability.Slots) != 4 {
		t.Errorf("expected 4 slots, got %d", len(availability.Slots))
	}
	if len(availability.SlotsByDate) != 2 || len(availability.SlotsByDate["2026-01-07"]) != 2 {
		t.Errorf("unexpected grouping: %v", availability.SlotsByDate)
	}
}

func TestAvailabilityForDoctorSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, &model.GenerateRequest{DoctorID: f.doctor.ID})

	availability, err := f.service.AvailabilityForDoctorSlug(ctx, "Cuddy", "2026-01-05", "2026-01-07")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if availability.Doctor.ID != f.doctor.ID || len(availability.Slots) != 4 {
		t.Errorf("unexpected availability: doctor %s, %d slots", availability.Doctor.ID, len(availability.Slots))
	}

	if _, err := f.service.AvailabilityForDoctorSlug(ctx, "wilson", "", ""); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := f.service.AvailabilityForDoctorSlug(ctx, "  ", "", ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestCreateSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.insertSlot(t, "2026-02-02", "10:00", "10:30", true)

	tests := []struct {
		name       string
		start, end string
		wantCode   string
		wantReason string
	}{
		{name: "overlaps start", start: "09:45", end: "10:15", wantCode: apperrors.CodeConflict, wantReason: "slot_overlap"},
		{name: "same key", start: "10:00", end: "10:10", wantCode: apperrors.CodeConflict, wantReason: "slot_overlap"},
		{name: "inverted times", start: "11:00", end: "10:45", wantCode: apperrors.CodeValidation},
		{name: "padded inverted times", start: " 11:00", end: "10:45", wantCode: apperrors.CodeValidation},
		{name: "adjacent", start: "10:30", end: "11:00"},
		{name: "padded times", start: " 11:00 ", end: "11:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := &model.Slot{
				DoctorID:    f.doctor.ID,
				ScheduleID:  f.schedule.ID,
				Date:        "2026-02-02",
				StartTime:   tt.start,
				EndTime:     tt.end,
				IsAvailable: false,
			}
			err := f.service.CreateSlot(ctx, slot)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				if tt.wantReason != "" && reason(err) != tt.wantReason {
					t.Errorf("reason = %q, want %q", reason(err), tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if slot.ID == "" || slot.ScheduleID != "" || !slot.IsAvailable {
				t.Errorf("manual slot should be stored free and detached: %+v", slot)
			}
			stored, err := f.store.Slots().FindByID(ctx, slot.ID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if stored.StartTime != strings.TrimSpace(tt.start) {
				t.Errorf("stored start %q", stored.StartTime)
			}
		})
	}
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := f.insertSlot(t, "2026-02-02", "08:00", "08:30", false)
	referenced := f.insertSlot(t, "2026-02-02", "08:30", "09:00", true)
	f.addAppointment(t, referenced.ID, model.StatusCancelled)
	free := f.insertSlot(t, "2026-02-02", "09:00", "09:30", true)

	err := f.service.DeleteSlot(ctx, booked.ID)
	if reason(err) != "slot_booked" || !errors.Is(err, slotserrors.ErrNotAvailable) {
		t.Errorf("booked slot: got %v", err)
	}

	err = f.service.DeleteSlot(ctx, referenced.ID)
	if reason(err) != "slot_referenced" || !errors.Is(err, slotserrors.ErrReferenced) {
		t.Errorf("referenced slot: got %v", err)
	}

	if err := f.service.DeleteSlot(ctx, free.ID); err != nil {
		t.Fatalf("delete free slot: %v", err)
	}
	if err := f.service.DeleteSlot(ctx, free.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
	if err := f.service.DeleteSlot(ctx, "bad"); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestListSlots_JoinsActiveAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	held := f.insertSlot(t, "2026-02-02", "08:00", "08:30", false)
	f.addAppointment(t, held.ID, model.StatusConfirmed)
	f.insertSlot(t, "2026-02-02", "08:30", "09:00", true)

	unavailable := false
	listing, err := f.service.ListSlots(ctx, model.SlotFilter{DoctorID: f.doctor.ID, Available: &unavailable})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.Truncated {
		t.Error("listing should not be truncated")
	}
	got := listing.Slots
	if len(got) != 1 || got[0].ID != held.ID {
		t.Fatalf("expected only the held slot, got %d", len(got))
	}
	if got[0].Appointment == nil || got[0].Appointment.Status != model.StatusConfirmed {
		t.Errorf("appointment not joined: %+v", got[0].Appointment)
	}

	if _, err := f.service.ListSlots(ctx, model.SlotFilter{FromDate: "2026-02-03", ToDate: "2026-02-01"}); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for inverted range, got %v", err)
	}
}

func TestListSlots_ReportsTruncation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cfg.SlotListLimit = 2

	f.insertSlot(t, "2026-02-02", "08:00", "08:30", true)
	f.insertSlot(t, "2026-02-02", "08:30", "09:00", true)

	listing, err := f.service.ListSlots(ctx, model.SlotFilter{DoctorID: f.doctor.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.Truncated || len(listing.Slots) != 2 {
		t.Fatalf("exactly limit slots must not be truncated: %d truncated=%v", len(listing.Slots), listing.Truncated)
	}

	f.insertSlot(t, "2026-02-02", "09:00", "09:30", true)
	listing, err = f.service.ListSlots(ctx, model.SlotFilter{DoctorID: f.doctor.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !listing.Truncated || listing.Limit != 2 || len(listing.Slots) != 2 {
		t.Fatalf("expected truncated listing of 2, got %d truncated=%v limit=%d", len(listing.Slots), listing.Truncated, listing.Limit)
	}
	if listing.Slots[1].StartTime != "08:30" {
		t.Errorf("truncation should keep the earliest slots, got %s", listing.Slots[1].StartTime)
	}
}
