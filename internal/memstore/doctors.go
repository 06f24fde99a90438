package memstore

import (
	"context"
	"fmt"
	doctorserrors "medbook/internal/doctors/errors"
	"medbook/internal/doctors/repository"
	"medbook/pkg/model"
	"sort"
	"time"
)

type doctorRepository struct {
	store *Store
}

func (s *Store) Doctors() repository.DoctorRepository {
	return &doctorRepository{store: s}
}

func (r *doctorRepository) Create(ctx context.Context, d *model.Doctor) error {
	return r.store.write(ctx, func() error {
		for _, existing := range r.store.doctors {
			if existing.Slug == d.Slug {
				return fmt.Errorf("%w: %s", doctorserrors.ErrDuplicateSlug, d.Slug)
			}
		}
		d.ID = newID()
		d.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
		r.store.doctors[d.ID] = *d
		return nil
	})
}

func (r *doctorRepository) FindByID(ctx context.Context, id string) (*model.Doctor, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", doctorserrors.ErrInvalidID, id)
	}
	var out *model.Doctor
	err := r.store.read(ctx, func() error {
		d, ok := r.store.doctors[id]
		if !ok {
			return fmt.Errorf("%w: %s", doctorserrors.ErrNotFound, id)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *doctorRepository) FindBySlug(ctx context.Context, slug string) (*model.Doctor, error) {
	var out *model.Doctor
	err := r.store.read(ctx, func() error {
		for _, d := range r.store.doctors {
			if d.Slug == slug {
				out = &d
				return nil
			}
		}
		return fmt.Errorf("%w: slug %s", doctorserrors.ErrNotFound, slug)
	})
	return out, err
}

func (r *doctorRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Doctor, error) {
	out := make(map[string]*model.Doctor, len(ids))
	err := r.store.read(ctx, func() error {
		for _, id := range ids {
			if d, ok := r.store.doctors[id]; ok {
				out[id] = &d
			}
		}
		return nil
	})
	return out, err
}

func (r *doctorRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, error) {
	var all []*model.Doctor
	err := r.store.read(ctx, func() error {
		for _, d := range r.store.doctors {
			all = append(all, &d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

func (r *doctorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.read(ctx, func() error {
		n = int64(len(r.store.doctors))
		return nil
	})
	return n, err
}

func (r *doctorRepository) Update(ctx context.Context, id string, d *model.Doctor) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", doctorserrors.ErrInvalidID, id)
	}
	return r.store.write(ctx, func() error {
		existing, ok := r.store.doctors[id]
		if !ok {
			return fmt.Errorf("%w: %s", doctorserrors.ErrNotFound, id)
		}
		existing.Name = d.Name
		existing.Specialty = d.Specialty
		existing.ExaminationDuration = d.ExaminationDuration
		r.store.doctors[id] = existing
		return nil
	})
}

func page[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
