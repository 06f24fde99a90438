package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort          = "PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvStorageDriver = "STORAGE_DRIVER"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultExaminationDurationMin = "DEFAULT_EXAMINATION_DURATION_MIN"
	EnvGenerationHorizonDays         = "GENERATION_HORIZON_DAYS"
	EnvAvailableSlotsDefaultDays     = "AVAILABLE_SLOTS_DEFAULT_DAYS"
	EnvSlotListLimit                 = "SLOT_LIST_LIMIT"
	EnvClaimLockTTL                  = "CLAIM_LOCK_TTL"
	EnvPhoneDefaultRegion            = "PHONE_DEFAULT_REGION"

	EnvEventsEnabled = "EVENTS_ENABLED"
	EnvEventsTopic   = "EVENTS_TOPIC"
)
