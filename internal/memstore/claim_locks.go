package memstore

import (
	"context"
	"fmt"
	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/internal/appointments/repository"
	"medbook/pkg/model"
	"time"
)

type claimLockRepository struct {
	store *Store
}

func (s *Store) ClaimLocks() repository.ClaimLockRepository {
	return &claimLockRepository{store: s}
}

func (r *claimLockRepository) Acquire(ctx context.Context, slotID, owner string, ttl time.Duration, now time.Time) error {
	return r.store.write(ctx, func() error {
		id := model.SlotClaimLockID(slotID)
		if existing, held := r.store.claimLocks[id]; held && !existing.Expired(now) {
			return fmt.Errorf("%w: %s", appointmentserrors.ErrLockHeld, slotID)
		}
		r.store.claimLocks[id] = model.SlotClaimLock{
			ID:        id,
			SlotID:    slotID,
			Owner:     owner,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		return nil
	})
}

func (r *claimLockRepository) Release(ctx context.Context, slotID, owner string) error {
	return r.store.write(ctx, func() error {
		id := model.SlotClaimLockID(slotID)
		if existing, held := r.store.claimLocks[id]; held && existing.Owner == owner {
			delete(r.store.claimLocks, id)
		}
		return nil
	})
}
