package service

import (
	"context"
	"errors"
	appointmentsrepo "medbook/internal/appointments/repository"
	doctorserrors "medbook/internal/doctors/errors"
	doctorsrepo "medbook/internal/doctors/repository"
	"medbook/internal/events"
	scheduleserrors "medbook/internal/schedules/errors"
	"medbook/internal/schedules/repository"
	"medbook/internal/schedules/validator"
	slotsrepo "medbook/internal/slots/repository"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validation"
)

type ScheduleService interface {
	Create(ctx context.Context, req *model.NewSchedule) (*model.Schedule, error)
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*model.Schedule, error)
	Update(ctx context.Context, id string, updates *model.ScheduleUpdate) (*model.Schedule, error)
	// Delete removes the schedule together with its never booked slots.
	// Slots referenced by an appointment survive, detached from the schedule.
	Delete(ctx context.Context, id string) (*model.ScheduleDeletion, error)
}

type scheduleService struct {
	repo         repository.ScheduleRepository
	doctors      doctorsrepo.DoctorRepository
	slots        slotsrepo.SlotRepository
	appointments appointmentsrepo.AppointmentRepository
	validator    *validator.ScheduleValidator
	publisher    events.Publisher
	cfg          *config.Config
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	doctors doctorsrepo.DoctorRepository,
	slots slotsrepo.SlotRepository,
	appointments appointmentsrepo.AppointmentRepository,
	validator *validator.ScheduleValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		repo:         repo,
		doctors:      doctors,
		slots:        slots,
		appointments: appointments,
		validator:    validator,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *scheduleService) Create(ctx context.Context, req *model.NewSchedule) (*model.Schedule, error) {
	req.DoctorID = sanitizer.NormalizeID(req.DoctorID)
	sanitizeUpdate(&req.ScheduleUpdate)

	if err := s.validator.ValidateNew(req); err != nil {
		s.cfg.Log.Warn("Schedule validation failed",
			"doctor_id", req.DoctorID,
			"error", err,
		)
		return nil, apperrors.Validation("Schedule validation failed", validation.Details(err))
	}

	if err := s.ensureDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	sc := req.Schedule()
	if err := s.repo.Create(ctx, sc); err != nil {
		s.cfg.Log.Error("Failed to create schedule",
			"doctor_id", sc.DoctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create schedule", err)
	}

	s.cfg.Log.Info("Schedule created successfully",
		"id", sc.ID,
		"doctor_id", sc.DoctorID,
		"start_date", sc.StartDate,
		"end_date", sc.EndDate,
		"days_of_week", sc.DaysOfWeek.String(),
	)
	return sc, nil
}

func (s *scheduleService) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(id, err)
	}
	return sc, nil
}

func (s *scheduleService) ListByDoctor(ctx context.Context, doctorID string) ([]*model.Schedule, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("doctor_id must be provided")
	}

	schedules, err := s.repo.FindByDoctor(ctx, doctorID, false)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedules",
			"doctor_id", doctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedules", err)
	}
	return schedules, nil
}

// Update replaces the window, weekdays, times and active flag. Slots that
// were already generated are left as they are.
func (s *scheduleService) Update(ctx context.Context, id string, updates *model.ScheduleUpdate) (*model.Schedule, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Schedule validation failed",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Validation("Schedule validation failed", validation.Details(err))
	}

	var updated *model.Schedule
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.translateLookupError(id, err)
		}

		existing.Apply(updates)
		if err := s.repo.Update(ctx, id, existing); err != nil {
			return s.translateLookupError(id, err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Schedule updated successfully",
		"id", id,
		"is_active", updated.IsActive,
	)
	return updated, nil
}

func (s *scheduleService) Delete(ctx context.Context, id string) (*model.ScheduleDeletion, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	var result *model.ScheduleDeletion
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		// WithTransaction may run this more than once, so start from scratch.
		result = &model.ScheduleDeletion{ScheduleID: id}

		sc, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.translateLookupError(id, err)
		}

		ids, err := s.slots.ListIDsBySchedule(ctx, sc.ID)
		if err != nil {
			return apperrors.Internal("Failed to list schedule slots", err)
		}

		referenced, err := s.appointments.SlotsWithAppointments(ctx, ids)
		if err != nil {
			return apperrors.Internal("Failed to check slot appointments", err)
		}

		var unreferenced, kept []string
		for _, slotID := range ids {
			if referenced[slotID] {
				kept = append(kept, slotID)
			} else {
				unreferenced = append(unreferenced, slotID)
			}
		}

		if result.DeletedSlots, err = s.slots.DeleteMany(ctx, unreferenced); err != nil {
			return apperrors.Internal("Failed to delete schedule slots", err)
		}
		if result.DetachedSlots, err = s.slots.ClearSchedule(ctx, kept); err != nil {
			return apperrors.Internal("Failed to detach booked slots", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.translateLookupError(id, err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			s.cfg.Log.Error("Failed to delete schedule",
				"id", id,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to delete schedule", err)
		}
		return nil, err
	}

	s.cfg.Log.Info("Schedule deleted successfully",
		"id", id,
		"deleted_slots", result.DeletedSlots,
		"detached_slots", result.DetachedSlots,
	)

	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type:    events.ScheduleDeleted,
		Key:     id,
		Payload: result,
	})
	return result, nil
}

func sanitizeUpdate(u *model.ScheduleUpdate) {
	u.StartDate = sanitizer.NormalizeDate(u.StartDate)
	u.EndDate = sanitizer.NormalizeDate(u.EndDate)
	u.DailyStartTime = sanitizer.NormalizeClockTime(u.DailyStartTime)
	u.DailyEndTime = sanitizer.NormalizeClockTime(u.DailyEndTime)
}

func (s *scheduleService) ensureDoctor(ctx context.Context, doctorID string) error {
	if _, err := s.doctors.FindByID(ctx, doctorID); err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Doctor", doctorID).WithCause(doctorserrors.ErrNotFound)
		}
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid doctor ID format")
		}
		return apperrors.Internal("Failed to retrieve doctor", err)
	}
	return nil
}

func (s *scheduleService) translateLookupError(id string, err error) error {
	if errors.Is(err, scheduleserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Schedule", id).WithCause(scheduleserrors.ErrNotFound)
	}
	if errors.Is(err, scheduleserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid schedule ID format")
	}
	s.cfg.Log.Error("Failed to get schedule by ID",
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to retrieve schedule", err)
}
