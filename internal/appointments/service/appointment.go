package service

import (
	"context"
	"errors"
	appointmentserrors "medbook/internal/appointments/errors"
	"medbook/internal/appointments/repository"
	"medbook/internal/appointments/validator"
	doctorsrepo "medbook/internal/doctors/repository"
	"medbook/internal/events"
	slotserrors "medbook/internal/slots/errors"
	slotsrepo "medbook/internal/slots/repository"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validation"
	"sort"
	"time"

	"github.com/google/uuid"
)

type AppointmentService interface {
	// Book claims a free slot for a patient. At most one booking per slot
	// succeeds; the others get SlotUnavailable or AlreadyBooked conflicts.
	Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, id string) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate) (*model.Appointment, error)
	// Delete removes the appointment and frees its slot.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.AppointmentView, error)
	List(ctx context.Context, status model.AppointmentStatus) ([]*model.AppointmentView, error)
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	locks     repository.ClaimLockRepository
	slots     slotsrepo.SlotRepository
	doctors   doctorsrepo.DoctorRepository
	validator *validator.AppointmentValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	locks repository.ClaimLockRepository,
	slots slotsrepo.SlotRepository,
	doctors doctorsrepo.DoctorRepository,
	validator *validator.AppointmentValidator,
	publisher events.Publisher,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		locks:     locks,
		slots:     slots,
		doctors:   doctors,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *appointmentService) Book(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error) {
	s.sanitize(req)
	if err := s.validator.ValidateBooking(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"time_slot_id", req.TimeSlotID,
			"error", err,
		)
		return nil, apperrors.Validation("Booking validation failed", validation.Details(err))
	}

	slotID := req.TimeSlotID
	log := s.cfg.Log.ForSlot(slotID)
	// A missing slot is reported as such even while someone holds its lock.
	if _, err := s.findSlot(ctx, slotID); err != nil {
		return nil, err
	}

	owner := uuid.NewString()
	if err := s.locks.Acquire(ctx, slotID, owner, s.cfg.ClaimLockTTL, s.cfg.Clock.Now()); err != nil {
		if errors.Is(err, appointmentserrors.ErrLockHeld) {
			return nil, alreadyBooked()
		}
		log.Error("Failed to acquire slot claim lock", "error", err)
		return nil, apperrors.Internal("Failed to book appointment", err)
	}
	defer s.releaseLock(ctx, slotID, owner)

	now := s.cfg.Clock.Now().UTC().Truncate(time.Millisecond)
	var appointment *model.Appointment
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		appointment = nil

		slot, err := s.findSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.IsAvailable {
			return slotUnavailable()
		}

		if _, err := s.repo.FindActiveBySlot(ctx, slotID); err == nil {
			return alreadyBooked()
		} else if !errors.Is(err, appointmentserrors.ErrNotFound) {
			return apperrors.Internal("Failed to check slot appointments", err)
		}

		a := &model.Appointment{
			TimeSlotID:   slotID,
			PatientName:  req.Name,
			PatientEmail: req.Email,
			PatientPhone: req.Phone,
			Notes:        req.Notes,
			Status:       model.StatusConfirmed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(ctx, a); err != nil {
			if errors.Is(err, appointmentserrors.ErrAlreadyBooked) {
				return alreadyBooked()
			}
			return apperrors.Internal("Failed to create appointment", err)
		}

		if err := s.slots.ClaimAvailable(ctx, slotID); err != nil {
			if errors.Is(err, slotserrors.ErrNotAvailable) {
				return slotUnavailable()
			}
			return apperrors.Internal("Failed to mark slot unavailable", err)
		}

		appointment = a
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error("Booking transaction failed", "error", err)
			return nil, apperrors.Internal("Failed to book appointment", err)
		}
		log.Info("Booking rejected", "error", err)
		return nil, err
	}

	log.Info("Appointment booked",
		"id", appointment.ID,
		"status", appointment.Status,
	)
	s.emit(ctx, events.AppointmentBooked, appointment)
	return appointment, nil
}

func (s *appointmentService) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	return s.UpdateStatus(ctx, id, &model.StatusUpdate{Status: model.StatusCancelled})
}

// UpdateStatus moves an appointment along pending -> confirmed -> cancelled.
// Setting the current status again changes nothing. Cancelling frees the slot.
func (s *appointmentService) UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	if err := s.validator.ValidateStatus(update); err != nil {
		return nil, apperrors.Validation("Status validation failed", validation.Details(err))
	}

	var (
		appointment *model.Appointment
		previous    model.AppointmentStatus
	)
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.translateLookupError(id, err)
		}
		previous = a.Status
		appointment = a

		if a.Status == update.Status {
			return nil
		}
		if !a.Status.CanTransitionTo(update.Status) {
			return apperrors.ConflictReason(appointmentserrors.ErrInvalidTransition, "invalid_transition",
				"Cannot change appointment status from "+string(a.Status)+" to "+string(update.Status))
		}

		now := s.cfg.Clock.Now().UTC().Truncate(time.Millisecond)
		if err := s.repo.UpdateStatus(ctx, id, update.Status, now); err != nil {
			if errors.Is(err, appointmentserrors.ErrAlreadyBooked) {
				return alreadyBooked()
			}
			return s.translateLookupError(id, err)
		}
		a.Status = update.Status
		a.UpdatedAt = now

		if update.Status == model.StatusCancelled {
			return s.releaseSlot(ctx, a.TimeSlotID)
		}
		return nil
	})
	if err != nil {
		return nil, s.internalUnlessAppError("Failed to update appointment status", id, err)
	}

	if previous == appointment.Status {
		return appointment, nil
	}

	s.cfg.Log.Info("Appointment status updated",
		"id", id,
		"from", previous,
		"to", appointment.Status,
	)
	s.emit(ctx, events.AppointmentStatusChanged, appointment)
	if appointment.Status == model.StatusCancelled {
		s.emit(ctx, events.AppointmentCancelled, appointment)
	}
	return appointment, nil
}

func (s *appointmentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	var deleted *model.Appointment
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.translateLookupError(id, err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.translateLookupError(id, err)
		}
		deleted = a
		return s.releaseSlot(ctx, a.TimeSlotID)
	})
	if err != nil {
		return s.internalUnlessAppError("Failed to delete appointment", id, err)
	}

	s.cfg.Log.Info("Appointment deleted",
		"id", id,
		"time_slot_id", deleted.TimeSlotID,
	)
	s.emit(ctx, events.AppointmentDeleted, deleted)
	return nil
}

// releaseSlot marks the slot available again unless another active
// appointment holds it. A slot that no longer exists is ignored.
func (s *appointmentService) releaseSlot(ctx context.Context, slotID string) error {
	if _, err := s.repo.FindActiveBySlot(ctx, slotID); err == nil {
		s.cfg.Log.Warn("Slot still held by another appointment, not releasing", "time_slot_id", slotID)
		return nil
	} else if !errors.Is(err, appointmentserrors.ErrNotFound) {
		return apperrors.Internal("Failed to check slot appointments", err)
	}

	if err := s.slots.UpdateAvailability(ctx, slotID, true); err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) || errors.Is(err, slotserrors.ErrInvalidID) {
			return nil
		}
		return apperrors.Internal("Failed to release slot", err)
	}
	return nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.AppointmentView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(id, err)
	}

	views, err := s.views(ctx, []*model.Appointment{a})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// List returns appointments, optionally of one status, latest slot first.
func (s *appointmentService) List(ctx context.Context, status model.AppointmentStatus) ([]*model.AppointmentView, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.InvalidInput("Invalid status filter: " + string(status))
	}

	appointments, err := s.repo.List(ctx, status)
	if err != nil {
		s.cfg.Log.Error("Failed to list appointments",
			"status", status,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve appointments", err)
	}

	views, err := s.views(ctx, appointments)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(views, func(i, j int) bool {
		return slotOrderKey(views[i]) > slotOrderKey(views[j])
	})
	return views, nil
}

func (s *appointmentService) views(ctx context.Context, appointments []*model.Appointment) ([]*model.AppointmentView, error) {
	slotIDs := make([]string, 0, len(appointments))
	for _, a := range appointments {
		slotIDs = append(slotIDs, a.TimeSlotID)
	}
	slots, err := s.slots.FindByIDs(ctx, slotIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve appointment slots", err)
	}

	doctorIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		doctorIDs = append(doctorIDs, slot.DoctorID)
	}
	doctors, err := s.doctors.FindByIDs(ctx, doctorIDs)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve appointment doctors", err)
	}

	views := make([]*model.AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		view := &model.AppointmentView{Appointment: *a}
		if slot, ok := slots[a.TimeSlotID]; ok {
			view.Slot = slot
			if d, ok := doctors[slot.DoctorID]; ok {
				summary := d.Summary()
				view.Doctor = &summary
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func slotOrderKey(v *model.AppointmentView) string {
	if v.Slot == nil {
		return ""
	}
	return v.Slot.Date + " " + v.Slot.StartTime
}

func (s *appointmentService) findSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) || errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Slot", slotID).WithCause(appointmentserrors.ErrSlotNotFound)
		}
		return nil, apperrors.Internal("Failed to retrieve slot", err)
	}
	return slot, nil
}

func (s *appointmentService) releaseLock(ctx context.Context, slotID, owner string) {
	if err := s.locks.Release(context.WithoutCancel(ctx), slotID, owner); err != nil {
		s.cfg.Log.ForSlot(slotID).Warn("Failed to release slot claim lock", "error", err)
	}
}

func (s *appointmentService) emit(ctx context.Context, eventType events.Type, a *model.Appointment) {
	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type: eventType,
		Key:  a.TimeSlotID,
		Payload: map[string]any{
			"appointment_id": a.ID,
			"time_slot_id":   a.TimeSlotID,
			"status":         a.Status,
		},
	})
}

func (s *appointmentService) sanitize(req *model.BookingRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	if phone := sanitizer.NormalizePhone(req.Phone, s.cfg.PhoneDefaultRegion); phone != "" {
		req.Phone = phone
	}
}

func (s *appointmentService) translateLookupError(id string, err error) error {
	if errors.Is(err, appointmentserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id).WithCause(appointmentserrors.ErrNotFound)
	}
	if errors.Is(err, appointmentserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid appointment ID format")
	}
	s.cfg.Log.Error("Failed to get appointment by ID",
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to retrieve appointment", err)
}

func (s *appointmentService) internalUnlessAppError(message, id string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error(message,
		"id", id,
		"error", err,
	)
	return apperrors.Internal(message, err)
}

func slotUnavailable() error {
	return apperrors.ConflictReason(appointmentserrors.ErrSlotUnavailable, "slot_unavailable", "Slot is not available")
}

func alreadyBooked() error {
	return apperrors.ConflictReason(appointmentserrors.ErrAlreadyBooked, "already_booked", "Slot is already booked")
}
