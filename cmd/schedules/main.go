package main

import (
	"medbook/internal/bootstrap"
	"medbook/internal/events"
	"medbook/pkg/app"
	"medbook/pkg/config"
	"medbook/pkg/middleware"
)

const ServiceName = "schedules"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Schedules service")
	stores := bootstrap.NewStores(cfg)

	publisher, err := events.FromConfig(cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	handlers := bootstrap.SchedulingHandlers(cfg, stores, publisher)
	// A memory store cannot be shared with the appointments process.
	if cfg.UsesMemoryStore() {
		handlers = append(handlers, bootstrap.AppointmentHandlers(cfg, stores, publisher)...)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers,
		app.WithPinger(stores),
		app.WithPhoneExtractor(middleware.JSONBodyPhoneExtractor("patient_phone", cfg.PhoneDefaultRegion, int64(cfg.MaxRequestSize))),
		app.OnShutdown(func() { closePublisher(cfg, publisher) }),
	)
	serverApp.Run()
}

func closePublisher(cfg *config.Config, publisher events.Publisher) {
	if err := publisher.Close(); err != nil {
		cfg.Log.Error("Failed to close event publisher", "error", err)
	}
}
