// Package bootstrap builds the storage layer selected by STORAGE_DRIVER.
package bootstrap

import (
	"context"
	appointmentsrepo "medbook/internal/appointments/repository"
	doctorsrepo "medbook/internal/doctors/repository"
	"medbook/internal/memstore"
	schedulesrepo "medbook/internal/schedules/repository"
	slotsrepo "medbook/internal/slots/repository"
	"medbook/pkg/config"
)

type Stores struct {
	Doctors      doctorsrepo.DoctorRepository
	Schedules    schedulesrepo.ScheduleRepository
	Slots        slotsrepo.SlotRepository
	Appointments appointmentsrepo.AppointmentRepository
	ClaimLocks   appointmentsrepo.ClaimLockRepository

	ping func(ctx context.Context) error
}

// NewStores connects to Mongo, or creates a process local memory store
// when STORAGE_DRIVER=memory.
func NewStores(cfg *config.Config) *Stores {
	if cfg.UsesMemoryStore() {
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return Memory(memstore.New())
	}

	cfg.SetMongo()
	return &Stores{
		Doctors:      doctorsrepo.NewMongoDoctorRepository(cfg),
		Schedules:    schedulesrepo.NewMongoScheduleRepository(cfg),
		Slots:        slotsrepo.NewMongoSlotRepository(cfg),
		Appointments: appointmentsrepo.NewMongoAppointmentRepository(cfg),
		ClaimLocks:   appointmentsrepo.NewMongoClaimLockRepository(cfg),
		ping:         cfg.Client.Ping,
	}
}

func Memory(store *memstore.Store) *Stores {
	return &Stores{
		Doctors:      store.Doctors(),
		Schedules:    store.Schedules(),
		Slots:        store.Slots(),
		Appointments: store.Appointments(),
		ClaimLocks:   store.ClaimLocks(),
		ping:         store.Ping,
	}
}

// Ping reports whether the backing store is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}
