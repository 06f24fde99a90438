package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv("test")

	if cfg.StorageDriver != StorageMongo {
		t.Errorf("expected default storage driver %q, got %q", StorageMongo, cfg.StorageDriver)
	}
	if cfg.DefaultExaminationDurationMin != 30 {
		t.Errorf("expected default duration 30, got %d", cfg.DefaultExaminationDurationMin)
	}
	if cfg.GenerationHorizonDays != 90 {
		t.Errorf("expected horizon 90, got %d", cfg.GenerationHorizonDays)
	}
	if cfg.AvailableSlotsDefaultDays != 30 {
		t.Errorf("expected available slots default 30, got %d", cfg.AvailableSlotsDefaultDays)
	}
	if cfg.SlotListLimit != 5000 {
		t.Errorf("expected slot list limit 5000, got %d", cfg.SlotListLimit)
	}
	if cfg.PhoneDefaultRegion != "HU" {
		t.Errorf("expected HU region, got %s", cfg.PhoneDefaultRegion)
	}
	if cfg.Clock == nil {
		t.Error("expected a clock")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvStorageDriver, "MEMORY")
	t.Setenv(EnvGenerationHorizonDays, "14")
	t.Setenv(EnvClaimLockTTL, "3s")
	t.Setenv(EnvEventsEnabled, "true")
	t.Setenv(EnvPhoneDefaultRegion, "de")

	cfg := FromEnv("test")

	if !cfg.UsesMemoryStore() {
		t.Errorf("expected memory store, got %q", cfg.StorageDriver)
	}
	if cfg.GenerationHorizonDays != 14 {
		t.Errorf("expected horizon 14, got %d", cfg.GenerationHorizonDays)
	}
	if cfg.ClaimLockTTL != 3*time.Second {
		t.Errorf("expected 3s lock ttl, got %s", cfg.ClaimLockTTL)
	}
	if !cfg.EventsEnabled {
		t.Error("expected events enabled")
	}
	if cfg.PhoneDefaultRegion != "DE" {
		t.Errorf("expected DE, got %s", cfg.PhoneDefaultRegion)
	}
}

func TestFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv(EnvGenerationHorizonDays, "ninety")
	t.Setenv(EnvClaimLockTTL, "soon")

	cfg := FromEnv("test")

	if cfg.GenerationHorizonDays != DefaultGenerationHorizonDays {
		t.Errorf("expected fallback horizon, got %d", cfg.GenerationHorizonDays)
	}
	if cfg.ClaimLockTTL != DefaultClaimLockTTL {
		t.Errorf("expected fallback ttl, got %s", cfg.ClaimLockTTL)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := FromEnv("test")
	cfg.Port = "0"
	cfg.StorageDriver = "sqlite"
	cfg.MongoURI = "postgres://db-host:5432"
	cfg.GenerationHorizonDays = 0
	cfg.SlotListLimit = -1
	cfg.PhoneDefaultRegion = "HUN"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"Port", "StorageDriver", "MongoURI", "GenerationHorizonDays", "SlotListLimit", "PhoneDefaultRegion"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error, got:\n%s", want, msg)
		}
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017/medbook")
	if got != "mongodb://***:***@db:27017/medbook" {
		t.Errorf("unexpected redaction: %s", got)
	}
}

func TestNormalizePaginationLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 10},
		{-5, 10},
		{25, 25},
		{1000, DefaultPaginationLimit},
	}
	for _, tt := range tests {
		if got := NormalizePaginationLimit(tt.in); got != tt.want {
			t.Errorf("NormalizePaginationLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
