package memstore

import (
	"context"
	"errors"
	appointmentserrors "medbook/internal/appointments/errors"
	doctorserrors "medbook/internal/doctors/errors"
	slotserrors "medbook/internal/slots/errors"
	"medbook/pkg/model"
	"testing"
	"time"
)

func newSlot(doctorID, date, start, end string) *model.Slot {
	return &model.Slot{
		DoctorID:    doctorID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
}

func TestSlots_UniqueKey(t *testing.T) {
	ctx := context.Background()
	slots := New().Slots()

	first := newSlot("d1", "2026-01-05", "08:00", "08:30")
	if err := slots.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	err := slots.Insert(ctx, newSlot("d1", "2026-01-05", "08:00", "09:00"))
	if !errors.Is(err, slotserrors.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := slots.Insert(ctx, newSlot("d2", "2026-01-05", "08:00", "08:30")); err != nil {
		t.Errorf("another doctor may use the same time: %v", err)
	}

	if err := slots.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := slots.Insert(ctx, newSlot("d1", "2026-01-05", "08:00", "08:30")); err != nil {
		t.Errorf("key should be free after delete: %v", err)
	}
}

func TestSlots_ClaimAvailable(t *testing.T) {
	ctx := context.Background()
	slots := New().Slots()

	slot := newSlot("d1", "2026-01-05", "08:00", "08:30")
	if err := slots.Insert(ctx, slot); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := slots.ClaimAvailable(ctx, slot.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := slots.ClaimAvailable(ctx, slot.ID); !errors.Is(err, slotserrors.ErrNotAvailable) {
		t.Errorf("second claim: expected ErrNotAvailable, got %v", err)
	}
}

func TestSlots_ListFilter(t *testing.T) {
	ctx := context.Background()
	slots := New().Slots()

	for _, s := range []*model.Slot{
		newSlot("d1", "2026-01-07", "08:00", "08:30"),
		newSlot("d1", "2026-01-05", "08:30", "09:00"),
		newSlot("d1", "2026-01-05", "08:00", "08:30"),
		newSlot("d2", "2026-01-05", "08:00", "08:30"),
	} {
		if err := slots.Insert(ctx, s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := slots.List(ctx, model.SlotFilter{DoctorID: "d1", FromDate: "2026-01-05", ToDate: "2026-01-06"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got))
	}
	if got[0].StartTime != "08:00" || got[1].StartTime != "08:30" {
		t.Errorf("slots not ordered by start time: %s, %s", got[0].StartTime, got[1].StartTime)
	}

	capped, err := slots.List(ctx, model.SlotFilter{DoctorID: "d1", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(capped) != 2 || capped[1].Date != "2026-01-05" {
		t.Errorf("limit should keep the earliest slots, got %d", len(capped))
	}
}

func TestSlots_ListIDsBySchedule(t *testing.T) {
	ctx := context.Background()
	slots := New().Slots()

	const total = 6000
	for i := 0; i < total; i++ {
		s := newSlot("d1", "2026-01-05", "08:00", "08:30")
		s.Date = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i/40).Format(time.DateOnly)
		s.StartTime = model.FormatMinutes(i % 40 * 15)
		s.ScheduleID = "sc1"
		if err := slots.Insert(ctx, s); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := slots.Insert(ctx, newSlot("d1", "2027-06-01", "08:00", "08:30")); err != nil {
		t.Fatalf("insert manual: %v", err)
	}

	ids, err := slots.ListIDsBySchedule(ctx, "sc1")
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != total {
		t.Errorf("expected every generated slot, got %d", len(ids))
	}
}

func TestAppointments_OneActivePerSlot(t *testing.T) {
	ctx := context.Background()
	appointments := New().Appointments()

	first := &model.Appointment{TimeSlotID: "s1", Status: model.StatusConfirmed}
	if err := appointments.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := appointments.Create(ctx, &model.Appointment{TimeSlotID: "s1", Status: model.StatusPending})
	if !errors.Is(err, appointmentserrors.ErrAlreadyBooked) {
		t.Fatalf("expected ErrAlreadyBooked, got %v", err)
	}

	if err := appointments.UpdateStatus(ctx, first.ID, model.StatusCancelled, time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := appointments.Create(ctx, &model.Appointment{TimeSlotID: "s1", Status: model.StatusConfirmed}); err != nil {
		t.Errorf("rebooking after cancel: %v", err)
	}

	refs, err := appointments.SlotsWithAppointments(ctx, []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	if !refs["s1"] || refs["s2"] {
		t.Errorf("unexpected references: %v", refs)
	}
}

func TestExecuteTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	store := New()
	slots := store.Slots()
	doctors := store.Doctors()

	boom := errors.New("boom")
	err := store.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := slots.Insert(ctx, newSlot("d1", "2026-01-05", "08:00", "08:30")); err != nil {
			return err
		}
		if err := doctors.Create(ctx, &model.Doctor{Slug: "dr-a", Name: "Dr A", ExaminationDuration: 30}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	keys, _ := slots.ListKeys(ctx, "d1", "", "")
	if len(keys) != 0 {
		t.Errorf("slot insert should be rolled back, found %d", len(keys))
	}
	if n, _ := doctors.Count(ctx); n != 0 {
		t.Errorf("doctor insert should be rolled back, found %d", n)
	}
	if err := doctors.Create(ctx, &model.Doctor{Slug: "dr-a", Name: "Dr A", ExaminationDuration: 30}); err != nil {
		t.Errorf("slug should be free after rollback: %v", err)
	}
}

func TestExecuteTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := New()
	slots := store.Slots()

	err := store.ExecuteTransaction(ctx, func(ctx context.Context) error {
		return slots.ExecuteTransaction(ctx, func(ctx context.Context) error {
			return slots.Insert(ctx, newSlot("d1", "2026-01-05", "08:00", "08:30"))
		})
	})
	if err != nil {
		t.Fatalf("nested transaction: %v", err)
	}

	keys, _ := slots.ListKeys(ctx, "d1", "", "")
	if len(keys) != 1 {
		t.Errorf("expected 1 slot, got %d", len(keys))
	}
}

func TestClaimLocks(t *testing.T) {
	ctx := context.Background()
	locks := New().ClaimLocks()
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	if err := locks.Acquire(ctx, "s1", "first", 10*time.Second, now); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := locks.Acquire(ctx, "s1", "second", 10*time.Second, now.Add(time.Second)); !errors.Is(err, appointmentserrors.ErrLockHeld) {
		t.Errorf("expected ErrLockHeld, got %v", err)
	}
	if err := locks.Acquire(ctx, "s1", "second", 10*time.Second, now.Add(11*time.Second)); err != nil {
		t.Errorf("expired lock should be taken over: %v", err)
	}

	// The first owner finishing late must not free the second owner's lock.
	if err := locks.Release(ctx, "s1", "first"); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if err := locks.Acquire(ctx, "s1", "third", 10*time.Second, now.Add(12*time.Second)); !errors.Is(err, appointmentserrors.ErrLockHeld) {
		t.Errorf("stale release dropped a live lock: %v", err)
	}

	if err := locks.Release(ctx, "s1", "second"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := locks.Acquire(ctx, "s1", "third", 10*time.Second, now.Add(12*time.Second)); err != nil {
		t.Errorf("released lock should be free: %v", err)
	}
}

func TestDoctors_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	doctors := New().Doctors()

	if err := doctors.Create(ctx, &model.Doctor{Slug: "dr-a", Name: "Dr A"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := doctors.Create(ctx, &model.Doctor{Slug: "dr-a", Name: "Dr A again"})
	if !errors.Is(err, doctorserrors.ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}
}
