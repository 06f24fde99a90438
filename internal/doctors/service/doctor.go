package service

import (
	"context"
	"errors"
	doctorserrors "medbook/internal/doctors/errors"
	"medbook/internal/doctors/repository"
	"medbook/internal/doctors/validator"
	"medbook/pkg/config"
	apperrors "medbook/pkg/errors"
	"medbook/pkg/model"
	"medbook/pkg/sanitizer"
	"medbook/pkg/validation"
	"sync"
)

type DoctorService interface {
	Create(ctx context.Context, d *model.Doctor) error
	GetByID(ctx context.Context, id string) (*model.Doctor, error)
	// GetBySlug accepts the slug in any case or with stray separators.
	GetBySlug(ctx context.Context, slug string) (*model.Doctor, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error)
	Update(ctx context.Context, id string, updates *model.DoctorUpdate) (*model.Doctor, error)
}

type doctorService struct {
	repo      repository.DoctorRepository
	validator *validator.DoctorValidator
	cfg       *config.Config
}

func NewDoctorService(
	repo repository.DoctorRepository,
	validator *validator.DoctorValidator,
	cfg *config.Config,
) DoctorService {
	return &doctorService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *doctorService) Create(ctx context.Context, d *model.Doctor) error {
	s.sanitize(d)
	if d.ExaminationDuration == 0 {
		d.ExaminationDuration = s.cfg.DefaultExaminationDurationMin
	}

	if err := s.validator.Validate(d); err != nil {
		s.cfg.Log.Warn("Doctor validation failed",
			"slug", d.Slug,
			"error", err,
		)
		return apperrors.Validation("Doctor validation failed", validation.Details(err))
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, doctorserrors.ErrDuplicateSlug) {
			return apperrors.ConflictReason(err, "duplicate_slug", "A doctor with this slug already exists")
		}
		s.cfg.Log.Error("Failed to create doctor",
			"slug", d.Slug,
			"error", err,
		)
		return apperrors.Internal("Failed to create doctor", err)
	}

	s.cfg.Log.Info("Doctor created successfully",
		"id", d.ID,
		"slug", d.Slug,
		"examination_duration", d.ExaminationDuration,
	)
	return nil
}

func (s *doctorService) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(id, err)
	}
	return d, nil
}

func (s *doctorService) GetBySlug(ctx context.Context, slug string) (*model.Doctor, error) {
	slug = sanitizer.SanitizeSlug(slug)
	if slug == "" {
		return nil, apperrors.InvalidInput("Doctor slug cannot be empty")
	}

	d, err := s.repo.FindBySlug(ctx, slug)
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
	return d, nil
}

func (s *doctorService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Doctor, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var doctors []*model.Doctor
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx)
		if err != nil {
			s.cfg.Log.Error("Failed to count doctors", "error", err)
			errCount = apperrors.Internal("Failed to count doctors", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		doctors, err = s.repo.FindAll(sharedCtx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all doctors",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve doctors", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return doctors, count, nil
}

// Update changes name, specialty and examination duration. A new duration
// only affects slots generated afterwards.
func (s *doctorService) Update(ctx context.Context, id string, updates *model.DoctorUpdate) (*model.Doctor, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Doctor ID cannot be empty")
	}

	if updates.Name != "" {
		updates.Name = sanitizer.NormalizeName(updates.Name)
	}
	if updates.Specialty != "" {
		updates.Specialty = sanitizer.TrimAndNormalize(updates.Specialty)
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, apperrors.Validation("Doctor validation failed", validation.Details(err))
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookupError(id, err)
	}

	merged := *existing
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Specialty != "" {
		merged.Specialty = updates.Specialty
	}
	if updates.ExaminationDuration != nil {
		merged.ExaminationDuration = *updates.ExaminationDuration
	}

	if err := s.repo.Update(ctx, id, &merged); err != nil {
		if errors.Is(err, doctorserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Doctor", id).WithCause(doctorserrors.ErrNotFound)
		}
		s.cfg.Log.Error("Failed to update doctor",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update doctor", err)
	}

	s.cfg.Log.Info("Doctor updated successfully",
		"id", id,
		"examination_duration", merged.ExaminationDuration,
	)
	return &merged, nil
}

func (s *doctorService) translateLookupError(id string, err error) error {
	if errors.Is(err, doctorserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Doctor", id).WithCause(doctorserrors.ErrNotFound)
	}
	if errors.Is(err, doctorserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid doctor ID format")
	}
	s.cfg.Log.Error("Failed to get doctor by ID",
		"id", id,
		"error", err,
	)
	return apperrors.Internal("Failed to retrieve doctor", err)
}

func (s *doctorService) sanitize(d *model.Doctor) {
	d.Name = sanitizer.NormalizeName(d.Name)
	d.Specialty = sanitizer.TrimAndNormalize(d.Specialty)
	if d.Slug == "" {
		d.Slug = sanitizer.SanitizeSlug(d.Name)
	} else {
		d.Slug = sanitizer.SanitizeSlug(d.Slug)
	}
}
