package repository

import (
	"context"
	"fmt"
	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/pkg/config"
	mongotx "medbook/pkg/db/mongo"
	"medbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ClaimLockCollectionName = "Slot_claim_locks"
)

// ClaimLockRepository serializes claims on one slot. Locks expire on their
// own so a crashed claimer cannot block a slot forever.
type ClaimLockRepository interface {
	// Acquire returns ErrLockHeld while an unexpired lock exists.
	Acquire(ctx context.Context, slotID, owner string, ttl time.Duration, now time.Time) error
	// Release drops the lock only while owner still holds it. A lock that
	// expired and was taken over is left alone.
	Release(ctx context.Context, slotID, owner string) error
}

type mongoClaimLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoClaimLockRepository(cfg *config.Config) ClaimLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoClaimLockRepository{
		cfg:        cfg,
		collection: db.Collection(ClaimLockCollectionName),
	}
}

func (r *mongoClaimLockRepository) Acquire(ctx context.Context, slotID, owner string, ttl time.Duration, now time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now = now.UTC().Truncate(time.Millisecond)
	lock := model.SlotClaimLock{
		ID:        model.SlotClaimLockID(slotID),
		SlotID:    slotID,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongotx.IsDuplicateKey(err) {
		return fmt.Errorf("failed to acquire claim lock: %w", err)
	}

	// The TTL monitor runs about once a minute, so an expired lock may still
	// be present. Take it over if so.
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lock.ID, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": lock.ExpiresAt, "created_at": lock.CreatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to take over expired claim lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", appointmentserrors.ErrLockHeld, slotID)
	}
	return nil
}

func (r *mongoClaimLockRepository) Release(ctx context.Context, slotID, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": model.SlotClaimLockID(slotID), "owner": owner}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to release claim lock: %w", err)
	}
	return nil
}
