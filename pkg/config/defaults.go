package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort          = "8080"
	DefaultStorageDriver = StorageMongo

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"

	DefaultPaginationLimit = 100

	DefaultExaminationDurationMin = 30
	DefaultGenerationHorizonDays  = 90
	DefaultAvailableSlotsDays     = 30
	DefaultSlotListLimit          = 5000
	DefaultClaimLockTTL           = 10 * time.Second
	DefaultPhoneRegion            = "HU"

	DefaultEventsEnabled = false
	DefaultEventsTopic   = "medbook.events"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)
