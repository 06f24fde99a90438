package validation

import (
	"errors"
	"fmt"
	"medbook/pkg/logger"
	"medbook/pkg/model"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// New returns a validator that reports json field names and knows the
// medbook specific tags: hhmm, weekdays and slug.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		log.Fatal("Failed to register 'hhmm' validator", "error", err)
	}
	if err := v.RegisterValidation("weekdays", validateWeekdays); err != nil {
		log.Fatal("Failed to register 'weekdays' validator", "error", err)
	}
	if err := v.RegisterValidation("slug", validateSlug); err != nil {
		log.Fatal("Failed to register 'slug' validator", "error", err)
	}

	return v
}

// validateHHMM accepts only the stored form, so callers sanitize first.
func validateHHMM(fl validator.FieldLevel) bool {
	_, err := model.ParseMinutes(fl.Field().String())
	return err == nil
}

func validateWeekdays(fl validator.FieldLevel) bool {
	set, ok := fl.Field().Interface().(model.WeekdaySet)
	return ok && set.IsValid()
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}

// Translate turns validator errors into field level messages. Other errors
// pass through unchanged.
func Translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "mongodb":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "hhmm":
		return fmt.Sprintf("%s must be a time in HH:MM 24-hour format", fe.Field())
	case "weekdays":
		return fmt.Sprintf("%s must contain at least one weekday between 0 (Sunday) and 6 (Saturday)", fe.Field())
	case "slug":
		return fmt.Sprintf("%s must contain lowercase letters, digits and single hyphens", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "e164":
		return fmt.Sprintf("%s must be a phone number in E.164 format", fe.Field())
	case "date_range":
		return fmt.Sprintf("%s must not be before the start of the range", fe.Field())
	case "time_window":
		return fmt.Sprintf("%s must be after the start time", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fe.Error()
	}
}

// Details renders a validation failure for AppError details.
func Details(err error) map[string]any {
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return map[string]any{"errors": []ValidationError(errs)}
	}
	return map[string]any{"error": err.Error()}
}
