package memstore

import (
	"context"
	"fmt"
	slotserrors "medbook/internal/slots/errors"
	"medbook/internal/slots/repository"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"sort"
	"time"
)

type slotRepository struct {
	store *Store
}

func (s *Store) Slots() repository.SlotRepository {
	return &slotRepository{store: s}
}

func (r *slotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	var out *model.Slot
	err := r.store.read(ctx, func() error {
		slot, ok := r.store.slots[id]
		if !ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		out = &slot
		return nil
	})
	return out, err
}

func (r *slotRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Slot, error) {
	out := make(map[string]*model.Slot, len(ids))
	err := r.store.read(ctx, func() error {
		for _, id := range ids {
			if slot, ok := r.store.slots[id]; ok {
				out[id] = &slot
			}
		}
		return nil
	})
	return out, err
}

func (r *slotRepository) FindByKey(ctx context.Context, key model.SlotKey) (*model.Slot, error) {
	var out *model.Slot
	err := r.store.read(ctx, func() error {
		id, ok := r.store.slotKeys[key]
		if !ok {
			return fmt.Errorf("%w: %s %s %s", slotserrors.ErrNotFound, key.DoctorID, key.Date, key.StartTime)
		}
		slot := r.store.slots[id]
		out = &slot
		return nil
	})
	return out, err
}

func (r *slotRepository) Insert(ctx context.Context, slot *model.Slot) error {
	return r.store.write(ctx, func() error {
		key := slot.Key()
		if _, taken := r.store.slotKeys[key]; taken {
			return fmt.Errorf("%w: %s %s %s", slotserrors.ErrDuplicate, key.DoctorID, key.Date, key.StartTime)
		}
		slot.ID = newID()
		slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
		r.store.slots[slot.ID] = *slot
		r.store.slotKeys[key] = slot.ID
		return nil
	})
}

func (r *slotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	var out []*model.Slot
	err := r.store.read(ctx, func() error {
		for _, slot := range r.store.slots {
			if matches(&slot, filter) {
				out = append(out, &slot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortSlots(out)
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *slotRepository) ListIDsBySchedule(ctx context.Context, scheduleID string) ([]string, error) {
	var ids []string
	err := r.store.read(ctx, func() error {
		for id, slot := range r.store.slots {
			if slot.ScheduleID == scheduleID {
				ids = append(ids, id)
			}
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

func (r *slotRepository) ListKeys(ctx context.Context, doctorID, fromDate, toDate string) (map[model.SlotKey]struct{}, error) {
	keys := make(map[model.SlotKey]struct{})
	filter := model.SlotFilter{DoctorID: doctorID, FromDate: fromDate, ToDate: toDate}
	err := r.store.read(ctx, func() error {
		for _, slot := range r.store.slots {
			if matches(&slot, filter) {
				keys[slot.Key()] = struct{}{}
			}
		}
		return nil
	})
	return keys, err
}

func (r *slotRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		slot, ok := r.store.slots[id]
		if !ok {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		slot.IsAvailable = available
		r.store.slots[id] = slot
		return nil
	})
}

func (r *slotRepository) ClaimAvailable(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		slot, ok := r.store.slots[id]
		if !ok || !slot.IsAvailable {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotAvailable, id)
		}
		slot.IsAvailable = false
		r.store.slots[id] = slot
		return nil
	})
}

func (r *slotRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		if !r.store.deleteSlot(id) {
			return fmt.Errorf("%w: %s", slotserrors.ErrNotFound, id)
		}
		return nil
	})
}

func (r *slotRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.store.write(ctx, func() error {
		for _, id := range ids {
			if r.store.deleteSlot(id) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *slotRepository) ClearSchedule(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.store.write(ctx, func() error {
		for _, id := range ids {
			slot, ok := r.store.slots[id]
			if !ok || slot.ScheduleID == "" {
				continue
			}
			slot.ScheduleID = ""
			r.store.slots[id] = slot
			n++
		}
		return nil
	})
	return n, err
}

func (r *slotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.ExecuteTransaction(ctx, fn)
}

// deleteSlot must be called with mu held.
func (s *Store) deleteSlot(id string) bool {
	slot, ok := s.slots[id]
	if !ok {
		return false
	}
	delete(s.slots, id)
	delete(s.slotKeys, slot.Key())
	return true
}

func matches(slot *model.Slot, f model.SlotFilter) bool {
	if f.DoctorID != "" && slot.DoctorID != f.DoctorID {
		return false
	}
	if f.ScheduleID != "" && slot.ScheduleID != f.ScheduleID {
		return false
	}
	if f.FromDate != "" && slot.Date < f.FromDate {
		return false
	}
	if f.ToDate != "" && slot.Date > f.ToDate {
		return false
	}
	if f.Available != nil && slot.IsAvailable != *f.Available {
		return false
	}
	return true
}

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].DoctorID < slots[j].DoctorID
	})
}
