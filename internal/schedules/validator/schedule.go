package validator

import (
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"medbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ScheduleValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	v := validation.New(log)
	v.RegisterStructValidation(validateUpdateWindow, model.ScheduleUpdate{})
	v.RegisterStructValidation(validateScheduleWindow, model.Schedule{})

	return &ScheduleValidator{
		validate: v,
		logger:   log,
	}
}

func validateUpdateWindow(sl validator.StructLevel) {
	u := sl.Current().Interface().(model.ScheduleUpdate)
	reportWindow(sl, u.StartDate, u.EndDate, u.DailyStartTime, u.DailyEndTime)
}

func validateScheduleWindow(sl validator.StructLevel) {
	sc := sl.Current().Interface().(model.Schedule)
	reportWindow(sl, sc.StartDate, sc.EndDate, sc.DailyStartTime, sc.DailyEndTime)
}

// reportWindow checks start_date <= end_date and daily_start_time <
// daily_end_time. Malformed values are left to the field tags.
func reportWindow(sl validator.StructLevel, startDate, endDate, startTime, endTime string) {
	from, errFrom := model.ParseDate(startDate)
	to, errTo := model.ParseDate(endDate)
	if errFrom == nil && errTo == nil && to.Before(from) {
		sl.ReportError(endDate, "end_date", "EndDate", "date_range", "")
	}

	start, errStart := model.ParseMinutes(startTime)
	end, errEnd := model.ParseMinutes(endTime)
	if errStart == nil && errEnd == nil && end <= start {
		sl.ReportError(endTime, "daily_end_time", "DailyEndTime", "time_window", "")
	}
}

func (v *ScheduleValidator) ValidateNew(n *model.NewSchedule) error {
	if err := v.validate.Struct(n); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func (v *ScheduleValidator) ValidateUpdate(u *model.ScheduleUpdate) error {
	if err := v.validate.Struct(u); err != nil {
		return validation.Translate(err)
	}
	return nil
}

func (v *ScheduleValidator) Validate(sc *model.Schedule) error {
	if err := v.validate.Struct(sc); err != nil {
		return validation.Translate(err)
	}
	return nil
}
