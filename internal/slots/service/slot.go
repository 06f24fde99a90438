package service

import (
	"context"
	"errors"
	appointmentsrepo "medbook/internal/appointments/repository"
	doctorserrors "medbook/internal/doctors/errors"
	doctorsrepo "medbook/internal/doctors/repository"
	"medbook/internal/events"
	scheduleserrors "medbook/internal/schedules/errors"
	schedulesrepo "medbook/internal/schedules/repository"
	slotserrors "medbook/internal/slots/errors"
	"medbook/internal/slots/generator"
	"medbook/internal/slots/repository"
	"medbook/internal/slots/validator"
	"medbook/pkg/clock"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validation"
)

type SlotService interface {
	// Generate materializes the slots of a doctor's active schedules. It is
	// idempotent: slots that already exist are counted as skipped.
	Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResult, error)
	CreateSlot(ctx context.Context, slot *model.Slot) error
	DeleteSlot(ctx context.Context, id string) error
	ListSlots(ctx context.Context, filter model.SlotFilter) (*model.SlotListing, error)
	ListAvailable(ctx context.Context, doctorID, from, to string) ([]*model.Slot, error)
	AvailabilityForDoctor(ctx context.Context, doctorID, from, to string) (*model.DoctorAvailability, error)
	AvailabilityForDoctorSlug(ctx context.Context, slug, from, to string) (*model.DoctorAvailability, error)
}

type slotService struct {
	repo         repository.SlotRepository
	doctors      doctorsrepo.DoctorRepository
	schedules    schedulesrepo.ScheduleRepository
	appointments appointmentsrepo.AppointmentRepository
	validator    *validator.SlotValidator
	publisher    events.Publisher
	cfg          *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	doctors doctorsrepo.DoctorRepository,
	schedules schedulesrepo.ScheduleRepository,
	appointments appointmentsrepo.AppointmentRepository,
	validator *validator.SlotValidator,
	publisher events.Publisher,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:         repo,
		doctors:      doctors,
		schedules:    schedules,
		appointments: appointments,
		validator:    validator,
		publisher:    publisher,
		cfg:          cfg,
	}
}

func (s *slotService) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResult, error) {
	req.DoctorID = sanitizer.NormalizeID(req.DoctorID)
	req.ScheduleID = sanitizer.NormalizeID(req.ScheduleID)
	req.FromDate = sanitizer.NormalizeDate(req.FromDate)
	req.ToDate = sanitizer.NormalizeDate(req.ToDate)

	if err := s.validator.ValidateGenerate(req); err != nil {
		return nil, apperrors.Validation("Generation request validation failed", validation.Details(err))
	}

	doctor, err := s.findDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	log := s.cfg.Log.ForDoctor(doctor.ID)

	schedules, err := s.activeSchedules(ctx, req)
	if err != nil {
		return nil, err
	}

	window, err := s.generationWindow(req)
	if err != nil {
		return nil, err
	}
	from, to := model.FormatDate(window.From), model.FormatDate(window.To)

	existing, err := s.repo.ListKeys(ctx, doctor.ID, from, to)
	if err != nil {
		log.Error("Failed to load existing slots", "error", err)
		return nil, apperrors.Internal("Failed to load existing slots", err)
	}

	duration := doctor.ExaminationDuration
	if duration <= 0 {
		duration = s.cfg.DefaultExaminationDurationMin
	}

	planned, err := generator.Generate(schedules, duration, window, func(k model.SlotKey) bool {
		_, ok := existing[k]
		return ok
	})
	if err != nil {
		log.Warn("Stored schedule cannot be expanded", "error", err)
		return nil, apperrors.Validation("Schedule cannot be expanded into slots", map[string]any{
			"error": err.Error(),
		}).WithCause(slotserrors.ErrInvalidSchedule)
	}

	result := &model.GenerateResult{
		Skipped:  planned.Skipped,
		FromDate: from,
		ToDate:   to,
	}
	for _, slot := range planned.Slots {
		if err := s.repo.Insert(ctx, slot); err != nil {
			// A concurrent run inserted the same key first.
			if errors.Is(err, slotserrors.ErrDuplicate) {
				result.Skipped++
				continue
			}
			log.Error("Failed to insert generated slot",
				"date", slot.Date,
				"start_time", slot.StartTime,
				"generated_so_far", result.Generated,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to store generated slots", err)
		}
		result.Generated++
	}

	log.Info("Slots generated",
		"schedule_id", req.ScheduleID,
		"schedules", len(schedules),
		"duration", duration,
		"from_date", from,
		"to_date", to,
		"generated", result.Generated,
		"skipped", result.Skipped,
	)

	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type: events.SlotsGenerated,
		Key:  doctor.ID,
		Payload: map[string]any{
			"doctor_id":   doctor.ID,
			"schedule_id": req.ScheduleID,
			"from_date":   from,
			"to_date":     to,
			"generated":   result.Generated,
			"skipped":     result.Skipped,
		},
	})
	return result, nil
}

func (s *slotService) activeSchedules(ctx context.Context, req *model.GenerateRequest) ([]*model.Schedule, error) {
	if req.ScheduleID != "" {
		sc, err := s.schedules.FindByID(ctx, req.ScheduleID)
		if err != nil {
			if errors.Is(err, scheduleserrors.ErrNotFound) || errors.Is(err, scheduleserrors.ErrInvalidID) {
				return nil, apperrors.NotFoundWithID("Schedule", req.ScheduleID).WithCause(scheduleserrors.ErrNotFound)
			}
			return nil, apperrors.Internal("Failed to retrieve schedule", err)
		}
		if sc.DoctorID != req.DoctorID || !sc.IsActive {
			return nil, apperrors.NotFoundWithID("Active schedule", req.ScheduleID).WithCause(scheduleserrors.ErrNotFound)
		}
		return []*model.Schedule{sc}, nil
	}

	schedules, err := s.schedules.FindByDoctor(ctx, req.DoctorID, true)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedules",
			"doctor_id", req.DoctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedules", err)
	}
	if len(schedules) == 0 {
		return nil, apperrors.NotFound("Active schedule").WithCause(scheduleserrors.ErrNotFound)
	}
	return schedules, nil
}

// generationWindow resolves the requested dates. from defaults to today and
// to to the horizon, which also caps an explicit to.
func (s *slotService) generationWindow(req *model.GenerateRequest) (generator.Window, error) {
	from := clock.Today(s.cfg.Clock)
	if req.FromDate != "" {
		d, err := model.ParseDate(req.FromDate)
		if err != nil {
			return generator.Window{}, apperrors.InvalidInput("Invalid from_date")
		}
		from = d
	}

	horizon := from.AddDate(0, 0, s.cfg.GenerationHorizonDays)
	to := horizon
	if req.ToDate != "" {
		d, err := model.ParseDate(req.ToDate)
		if err != nil {
			return generator.Window{}, apperrors.InvalidInput("Invalid to_date")
		}
		to = d
	}
	if to.After(horizon) {
		to = horizon
	}

	window := generator.Window{From: from, To: to}
	if window.Empty() {
		return generator.Window{}, apperrors.Validation("Generation window is empty", map[string]any{
			"from_date": model.FormatDate(from),
			"to_date":   model.FormatDate(to),
		})
	}
	return window, nil
}

// CreateSlot adds a slot by hand. It must not overlap any slot of the same
// doctor on that date.
func (s *slotService) CreateSlot(ctx context.Context, slot *model.Slot) error {
	slot.ID = ""
	slot.ScheduleID = ""
	slot.IsAvailable = true
	slot.DoctorID = sanitizer.NormalizeID(slot.DoctorID)
	slot.Date = sanitizer.NormalizeDate(slot.Date)
	slot.StartTime = sanitizer.NormalizeClockTime(slot.StartTime)
	slot.EndTime = sanitizer.NormalizeClockTime(slot.EndTime)

	if err := s.validator.Validate(slot); err != nil {
		return apperrors.Validation("Slot validation failed", validation.Details(err))
	}

	if _, err := s.findDoctor(ctx, slot.DoctorID); err != nil {
		return err
	}

	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		sameDay, err := s.repo.List(ctx, model.SlotFilter{
			DoctorID: slot.DoctorID,
			FromDate: slot.Date,
			ToDate:   slot.Date,
		})
		if err != nil {
			return apperrors.Internal("Failed to check for overlapping slots", err)
		}
		for _, existing := range sameDay {
			if existing.Overlaps(slot) {
				return apperrors.ConflictReason(slotserrors.ErrOverlap, "slot_overlap",
					"Slot overlaps an existing slot "+existing.StartTime+"-"+existing.EndTime)
			}
		}

		if err := s.repo.Insert(ctx, slot); err != nil {
			if errors.Is(err, slotserrors.ErrDuplicate) {
				return apperrors.ConflictReason(slotserrors.ErrDuplicate, "duplicate_slot", "Slot already exists")
			}
			return apperrors.Internal("Failed to create slot", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to create slot",
			"doctor_id", slot.DoctorID,
			"date", slot.Date,
			"start_time", slot.StartTime,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Slot created successfully",
		"id", slot.ID,
		"doctor_id", slot.DoctorID,
		"date", slot.Date,
		"start_time", slot.StartTime,
	)
	return nil
}

// DeleteSlot removes a slot that is free and never referenced by an appointment.
func (s *slotService) DeleteSlot(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		slot, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return s.translateLookupError(id, err)
		}
		if !slot.IsAvailable {
			return apperrors.ConflictReason(slotserrors.ErrNotAvailable, "slot_booked", "Slot is booked and cannot be deleted")
		}

		refs, err := s.appointments.SlotsWithAppointments(ctx, []string{id})
		if err != nil {
			return apperrors.Internal("Failed to check slot appointments", err)
		}
		if refs[id] {
			return apperrors.ConflictReason(slotserrors.ErrReferenced, "slot_referenced", "Slot is referenced by an appointment and cannot be deleted")
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			return s.translateLookupError(id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Slot deleted successfully", "id", id)
	return nil
}

func (s *slotService) ListSlots(ctx context.Context, filter model.SlotFilter) (*model.SlotListing, error) {
	if filter.FromDate != "" && filter.ToDate != "" && filter.ToDate < filter.FromDate {
		return nil, apperrors.InvalidInput("to must not be before from")
	}

	// One extra row tells a full page from a truncated one.
	limit := int64(s.cfg.SlotListLimit)
	if limit <= 0 {
		limit = config.DefaultSlotListLimit
	}
	filter.Limit = limit + 1
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list slots",
			"doctor_id", filter.DoctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	truncated := int64(len(slots)) > limit
	if truncated {
		slots = slots[:limit]
		s.cfg.Log.Warn("Slot listing truncated",
			"doctor_id", filter.DoctorID,
			"schedule_id", filter.ScheduleID,
			"limit", limit,
		)
	}

	active, err := s.appointments.ActiveBySlots(ctx, slotIDs(slots))
	if err != nil {
		s.cfg.Log.Error("Failed to load slot appointments", "error", err)
		return nil, apperrors.Internal("Failed to retrieve slot appointments", err)
	}

	out := make([]*model.SlotWithAppointment, 0, len(slots))
	for _, slot := range slots {
		out = append(out, &model.SlotWithAppointment{
			Slot:        *slot,
			Appointment: active[slot.ID],
		})
	}
	return &model.SlotListing{Slots: out, Limit: limit, Truncated: truncated}, nil
}

func (s *slotService) ListAvailable(ctx context.Context, doctorID, from, to string) ([]*model.Slot, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("doctor_id must be provided")
	}
	if _, err := s.findDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.listAvailable(ctx, doctorID, from, to)
}

func (s *slotService) AvailabilityForDoctor(ctx context.Context, doctorID, from, to string) (*model.DoctorAvailability, error) {
	doctor, err := s.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.availability(ctx, doctor, from, to)
}

func (s *slotService) AvailabilityForDoctorSlug(ctx context.Context, slug, from, to string) (*model.DoctorAvailability, error) {
	slug = sanitizer.SanitizeSlug(slug)
	if slug == "" {
		return nil, apperrors.InvalidInput("Doctor slug cannot be empty")
	}

	doctor, err := s.doctors.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Doctor").
				WithDetails(map[string]any{"resource": "Doctor", "slug": slug}).
				WithCause(doctorserrors.ErrNotFound)
		}
		s.cfg.Log.Error("Failed to get doctor by slug",
			"slug", slug,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve doctor", err)
	}
	return s.availability(ctx, doctor, from, to)
}

func (s *slotService) availability(ctx context.Context, doctor *model.Doctor, from, to string) (*model.DoctorAvailability, error) {
	fromDate, toDate, err := s.availabilityWindow(from, to)
	if err != nil {
		return nil, err
	}

	slots, err := s.listAvailable(ctx, doctor.ID, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]*model.Slot)
	for _, slot := range slots {
		byDate[slot.Date] = append(byDate[slot.Date], slot)
	}

	return &model.DoctorAvailability{
		Doctor:      doctor.Summary(),
		FromDate:    fromDate,
		ToDate:      toDate,
		Slots:       slots,
		SlotsByDate: byDate,
	}, nil
}

// listAvailable returns free slots dated today or later. A slot flagged
// available but holding an active appointment is left out.
func (s *slotService) listAvailable(ctx context.Context, doctorID, from, to string) ([]*model.Slot, error) {
	fromDate, toDate, err := s.availabilityWindow(from, to)
	if err != nil {
		return nil, err
	}
	if toDate < fromDate {
		return []*model.Slot{}, nil
	}

	available := true
	slots, err := s.repo.List(ctx, model.SlotFilter{
		DoctorID:  doctorID,
		FromDate:  fromDate,
		ToDate:    toDate,
		Available: &available,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to list available slots",
			"doctor_id", doctorID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve available slots", err)
	}

	active, err := s.appointments.ActiveBySlots(ctx, slotIDs(slots))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve slot appointments", err)
	}

	out := make([]*model.Slot, 0, len(slots))
	for _, slot := range slots {
		if _, booked := active[slot.ID]; booked {
			s.cfg.Log.Warn("Slot flagged available holds an active appointment",
				"slot_id", slot.ID,
				"appointment_id", active[slot.ID].ID,
			)
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// availabilityWindow defaults to [today, today+AvailableSlotsDefaultDays]
// and never starts before today.
func (s *slotService) availabilityWindow(from, to string) (string, string, error) {
	today := clock.Today(s.cfg.Clock)

	if from != "" && to != "" && to < from {
		return "", "", apperrors.Validation("Date range is inverted", map[string]any{
			"from": from,
			"to":   to,
		})
	}

	start := today
	if from != "" {
		d, err := model.ParseDate(from)
		if err != nil {
			return "", "", apperrors.InvalidInput("Invalid from date")
		}
		if d.After(today) {
			start = d
		}
	}

	end := today.AddDate(0, 0, s.cfg.AvailableSlotsDefaultDays)
	if to != "" {
		d, err := model.ParseDate(to)
		if err != nil {
			return "", "", apperrors.InvalidInput("Invalid to date")
		}
		end = d
	}

	return model.FormatDate(start), model.FormatDate(end), nil
}

func (s *slotService) findDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Doctor", id).WithCause(doctorserrors.ErrNotFound)
		}
		if errors.Is(err, doctorserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid doctor ID format")
		}
		s.cfg.Log.Error("Failed to get doctor by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve doctor", err)
	}
	return doctor, nil
}

func (s *slotService) translateLookupError(id string, err error) error {
	if errors.Is(err, slotserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Slot", id).WithCause(slotserrors.ErrNotFound)
	}
	if errors.Is(err, slotserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid slot ID format")
	}
	s.cfg.Log.Error("Failed to get slot by ID",
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to retrieve slot", err)
}

func slotIDs(slots []*model.Slot) []string {
	ids := make([]string, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	return ids
}

