package model

import "time"

// SlotClaimLock is a short lived advisory lock held while a slot is being claimed.
type SlotClaimLock struct {
	ID        string    `bson:"_id" json:"id"`
	SlotID    string    `bson:"slot_id" json:"slot_id"`
	// Owner identifies the booking attempt holding the lock.
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func SlotClaimLockID(slotID string) string {
	return "slot_claim_" + slotID
}

func (l *SlotClaimLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
