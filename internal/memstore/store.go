// Package memstore keeps every collection in process memory. It backs the
// services when STORAGE_DRIVER=memory and gives unit tests the same
// uniqueness and transaction behaviour as the Mongo repositories.
package memstore

import (
	"context"
	"fmt"
	"maps"
	mongotx "medbook/pkg/db/mongo"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store serializes transactions and writes on txMu. Reads outside a
// transaction only take mu and may observe uncommitted writes.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	doctors      map[string]model.Doctor
	schedules    map[string]model.Schedule
	slots        map[string]model.Slot
	slotKeys     map[model.SlotKey]string
	appointments map[string]model.Appointment
	claimLocks   map[string]model.SlotClaimLock
}

func New() *Store {
	return &Store{
		doctors:      make(map[string]model.Doctor),
		schedules:    make(map[string]model.Schedule),
		slots:        make(map[string]model.Slot),
		slotKeys:     make(map[model.SlotKey]string),
		appointments: make(map[string]model.Appointment),
		claimLocks:   make(map[string]model.SlotClaimLock),
	}
}

type snapshot struct {
	doctors      map[string]model.Doctor
	schedules    map[string]model.Schedule
	slots        map[string]model.Slot
	slotKeys     map[model.SlotKey]string
	appointments map[string]model.Appointment
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		doctors:      maps.Clone(s.doctors),
		schedules:    maps.Clone(s.schedules),
		slots:        maps.Clone(s.slots),
		slotKeys:     maps.Clone(s.slotKeys),
		appointments: maps.Clone(s.appointments),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors = snap.doctors
	s.schedules = snap.schedules
	s.slots = snap.slots
	s.slotKeys = snap.slotKeys
	s.appointments = snap.appointments
}

// ExecuteTransaction runs fn with all-or-nothing semantics. Claim locks are
// not part of the snapshot, they live outside transactions as in Mongo.
func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func inTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write applies fn under the data lock. Outside a transaction it also waits
// for running transactions so their rollback cannot discard the write.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !inTransaction(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func validID(id string) bool {
	return primitive.IsValidObjectID(id)
}
