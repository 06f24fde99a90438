package validator

import (
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type AppointmentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAppointmentValidator(log *logger.Logger) *AppointmentValidator {
	return &AppointmentValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *AppointmentValidator) ValidateBooking(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func (v *AppointmentValidator) ValidateStatus(u *model.StatusUpdate) error {
	if err := v.validate.Struct(u); err != nil {
		return validation.Translate(err)
	}
	return nil
}
