package bootstrap

import (
	appointmentshandler "medbook/internal/appointments/handler"
	appointmentsservice "medbook/internal/appointments/service"
	appointmentsvalidator "medbook/internal/appointments/validator"
	doctorshandler "medbook/internal/doctors/handler"
	doctorsservice "medbook/internal/doctors/service"
	doctorsvalidator "medbook/internal/doctors/validator"
	"medbook/internal/events"
	scheduleshandler "medbook/internal/schedules/handler"
	schedulesservice "medbook/internal/schedules/service"
	schedulesvalidator "medbook/internal/schedules/validator"
	slotshandler "medbook/internal/slots/handler"
	slotsservice "medbook/internal/slots/service"
	slotsvalidator "medbook/internal/slots/validator"
	"medbook/pkg/config"
	"medbook/pkg/contracts"
)

// SchedulingHandlers wires doctors, schedules and slots on top of stores.
func SchedulingHandlers(cfg *config.Config, stores *Stores, publisher events.Publisher) contracts.Handlers {
	doctorService := doctorsservice.NewDoctorService(
		stores.Doctors,
		doctorsvalidator.NewDoctorValidator(cfg.Log),
		cfg,
	)
	scheduleService := schedulesservice.NewScheduleService(
		stores.Schedules,
		stores.Doctors,
		stores.Slots,
		stores.Appointments,
		schedulesvalidator.NewScheduleValidator(cfg.Log),
		publisher,
		cfg,
	)
	slotService := slotsservice.NewSlotService(
		stores.Slots,
		stores.Doctors,
		stores.Schedules,
		stores.Appointments,
		slotsvalidator.NewSlotValidator(cfg.Log),
		publisher,
		cfg,
	)

	return contracts.Handlers{
		doctorshandler.NewDoctorHandler(doctorService, cfg.Log),
		scheduleshandler.NewScheduleHandler(scheduleService, cfg.Log),
		slotshandler.NewSlotHandler(slotService, cfg.Log),
	}
}

// AppointmentHandlers wires the booking coordinator on top of stores.
func AppointmentHandlers(cfg *config.Config, stores *Stores, publisher events.Publisher) contracts.Handlers {
	appointmentService := appointmentsservice.NewAppointmentService(
		stores.Appointments,
		stores.ClaimLocks,
		stores.Slots,
		stores.Doctors,
		appointmentsvalidator.NewAppointmentValidator(cfg.Log),
		publisher,
		cfg,
	)

	return contracts.Handlers{
		appointmentshandler.NewAppointmentHandler(appointmentService, cfg.Log),
	}
}
