package memstore

import (
	"context"
	"fmt"
	scheduleserrors "medbook/internal/schedules/errors"
	"medbook/internal/schedules/repository"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"sort"
	"time"
)

type scheduleRepository struct {
	store *Store
}

func (s *Store) Schedules() repository.ScheduleRepository {
	return &scheduleRepository{store: s}
}

func (r *scheduleRepository) Create(ctx context.Context, sc *model.Schedule) error {
	return r.store.write(ctx, func() error {
		sc.ID = newID()
		sc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
		r.store.schedules[sc.ID] = *sc
		return nil
	})
}

func (r *scheduleRepository) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}
	var out *model.Schedule
	err := r.store.read(ctx, func() error {
		sc, ok := r.store.schedules[id]
		if !ok {
			return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
		}
		out = &sc
		return nil
	})
	return out, err
}

func (r *scheduleRepository) FindByDoctor(ctx context.Context, doctorID string, activeOnly bool) ([]*model.Schedule, error) {
	var out []*model.Schedule
	err := r.store.read(ctx, func() error {
		for _, sc := range r.store.schedules {
			if sc.DoctorID != doctorID || (activeOnly && !sc.IsActive) {
				continue
			}
			out = append(out, &sc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate > out[j].StartDate
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *scheduleRepository) Update(ctx context.Context, id string, sc *model.Schedule) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		existing, ok := r.store.schedules[id]
		if !ok {
			return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
		}
		existing.StartDate = sc.StartDate
		existing.EndDate = sc.EndDate
		existing.DaysOfWeek = sc.DaysOfWeek
		existing.DailyStartTime = sc.DailyStartTime
		existing.DailyEndTime = sc.DailyEndTime
		existing.IsActive = sc.IsActive
		r.store.schedules[id] = existing
		return nil
	})
}

func (r *scheduleRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		if _, ok := r.store.schedules[id]; !ok {
			return fmt.Errorf("%w: %s", scheduleserrors.ErrNotFound, id)
		}
		delete(r.store.schedules, id)
		return nil
	})
}

func (r *scheduleRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.store.ExecuteTransaction(ctx, fn)
}
