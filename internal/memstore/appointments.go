package memstore

import (
	"context"
	"fmt"
	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/internal/appointments/repository"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"sort"
	"time"
)

type appointmentRepository struct {
	store *Store
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{store: s}
}

// activeFor must be called with mu held.
func (s *Store) activeFor(slotID string) (model.Appointment, bool) {
	for _, a := range s.appointments {
		if a.TimeSlotID == slotID && a.Status.IsActive() {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	return r.store.write(ctx, func() error {
		if a.Status.IsActive() {
			if _, taken := r.store.activeFor(a.TimeSlotID); taken {
				return fmt.Errorf("%w: %s", appointmentserrors.ErrAlreadyBooked, a.TimeSlotID)
			}
		}
		a.ID = newID()
		r.store.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepository) FindByID(ctx context.Context, id string) (*model.Appointment, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}
	var out *model.Appointment
	err := r.store.read(ctx, func() error {
		a, ok := r.store.appointments[id]
		if !ok {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *appointmentRepository) FindActiveBySlot(ctx context.Context, slotID string) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.store.read(ctx, func() error {
		a, ok := r.store.activeFor(slotID)
		if !ok {
			return fmt.Errorf("%w: no active appointment for slot %s", appointmentserrors.ErrNotFound, slotID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *appointmentRepository) ActiveBySlots(ctx context.Context, slotIDs []string) (map[string]*model.Appointment, error) {
	wanted := toSet(slotIDs)
	out := make(map[string]*model.Appointment, len(slotIDs))
	err := r.store.read(ctx, func() error {
		for _, a := range r.store.appointments {
			if _, ok := wanted[a.TimeSlotID]; ok && a.Status.IsActive() {
				out[a.TimeSlotID] = &a
			}
		}
		return nil
	})
	return out, err
}

func (r *appointmentRepository) SlotsWithAppointments(ctx context.Context, slotIDs []string) (map[string]bool, error) {
	wanted := toSet(slotIDs)
	out := make(map[string]bool, len(slotIDs))
	err := r.store.read(ctx, func() error {
		for _, a := range r.store.appointments {
			if _, ok := wanted[a.TimeSlotID]; ok {
				out[a.TimeSlotID] = true
			}
		}
		return nil
	})
	return out, err
}

func (r *appointmentRepository) List(ctx context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	var out []*model.Appointment
	err := r.store.read(ctx, func() error {
		for _, a := range r.store.appointments {
			if status == "" || a.Status == status {
				out = append(out, &a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus, at time.Time) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		a, ok := r.store.appointments[id]
		if !ok {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		if status.IsActive() && !a.Status.IsActive() {
			if _, taken := r.store.activeFor(a.TimeSlotID); taken {
				return fmt.Errorf("%w: %s", appointmentserrors.ErrAlreadyBooked, id)
			}
		}
		a.Status = status
		a.UpdatedAt = at.UTC().Truncate(time.Millisecond)
		r.store.appointments[id] = a
		return nil
	})
}

func (r *appointmentRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		if _, ok := r.store.appointments[id]; !ok {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrNotFound, id)
		}
		delete(r.store.appointments, id)
		return nil
	})
}

func (r *appointmentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.ExecuteTransaction(ctx, fn)
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
