package validator

import (
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	v := validation.New(log)
	v.RegisterStructValidation(validateSlotWindow, model.Slot{})
	v.RegisterStructValidation(validateGenerateWindow, model.GenerateRequest{})

	return &SlotValidator{
		validate: v,
		logger:   log,
	}
}

func validateSlotWindow(sl validator.StructLevel) {
	s := sl.Current().Interface().(model.Slot)
	start, errStart := model.ParseMinutes(s.StartTime)
	end, errEnd := model.ParseMinutes(s.EndTime)
	if errStart == nil && errEnd == nil && end <= start {
		sl.ReportError(s.EndTime, "end_time", "EndTime", "time_window", "")
	}
}

func validateGenerateWindow(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.GenerateRequest)
	if req.FromDate == "" || req.ToDate == "" {
		return
	}
	from, errFrom := model.ParseDate(req.FromDate)
	to, errTo := model.ParseDate(req.ToDate)
	if errFrom == nil && errTo == nil && to.Before(from) {
		sl.ReportError(req.ToDate, "to_date", "ToDate", "date_range", "")
	}
}

func (v *SlotValidator) Validate(s *model.Slot) error {
	if err := v.validate.Struct(s); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func (v *SlotValidator) ValidateGenerate(req *model.GenerateRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return validation.Translate(err)
	}
	return nil
}
