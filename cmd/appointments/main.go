package main

import (
	"medbook/internal/bootstrap"
	"medbook/internal/events"
	"medbook/pkg/app"
	"medbook/pkg/config"
	"medbook/pkg/middleware"
)

const ServiceName = "appointments"

func main() {
	cfg := config.Load(ServiceName)
	if cfg.UsesMemoryStore() {
		cfg.Log.Fatal("The appointments service needs a shared store, run the schedules service with STORAGE_DRIVER=memory instead")
	}

	cfg.Log.Info("Starting Appointments service")
	stores := bootstrap.NewStores(cfg)

	publisher, err := events.FromConfig(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(bootstrap.AppointmentHandlers(cfg, stores, publisher),
		app.WithPinger(stores),
		app.WithPhoneExtractor(middleware.JSONBodyPhoneExtractor("patient_phone", cfg.PhoneDefaultRegion, int64(cfg.MaxRequestSize))),
		app.OnShutdown(func() {
			if err := publisher.Close(); err != nil {
				cfg.Log.Error("Failed to close event publisher", "error", err)
			}
		}),
	)
	serverApp.Run()
}
