package validator

import (
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type DoctorValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewDoctorValidator(log *logger.Logger) *DoctorValidator {
	return &DoctorValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *DoctorValidator) Validate(d *model.Doctor) error {
	if err := v.validate.Struct(d); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func (v *DoctorValidator) ValidateUpdate(u *model.DoctorUpdate) error {
	if err := v.validate.Struct(u); err != nil {
		return validation.Translate(err)
	}
	return nil
}
