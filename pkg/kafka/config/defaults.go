package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	// Booking events must not be lost once the appointment is committed,
	// so the producer waits for every in-sync replica by default.
	DefaultProducerMaxAttempts  = 5
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = AcksAll
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	DLQSuffix   = ".dlq"
	DLQDisabled = "none"

	DefaultEnableMiddleware = true
)

const (
	AcksAll    = -1
	AcksNone   = 0
	AcksLeader = 1
)

var acksByName = map[string]int{
	"all":    AcksAll,
	"-1":     AcksAll,
	"none":   AcksNone,
	"0":      AcksNone,
	"leader": AcksLeader,
	"1":      AcksLeader,
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}
