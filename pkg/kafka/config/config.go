package kafka_config

import (
	"fmt"
	"medbook/pkg/logger"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config is the producer side of the booking events pipeline.
type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // AcksAll, AcksNone or AcksLeader
	ProducerCompression  string // one of compressions
	ProducerAsync        bool

	// DLQTopic is empty when the dead letter queue is disabled.
	DLQTopic         string
	EnableMiddleware bool
}

// Load reads the producer settings for eventsTopic from the environment.
// Malformed values are reported rather than replaced by their defaults.
func Load(eventsTopic string) (*Config, error) {
	env := &envReader{lookup: os.LookupEnv}

	cfg := &Config{
		Brokers: splitBrokers(env.str(EnvKafkaBrokers, DefaultKafkaBrokers)),

		ProducerMaxAttempts:  env.integer(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: env.duration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  env.acks(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  strings.ToLower(env.str(EnvKafkaProducerCompression, DefaultProducerCompression)),
		ProducerAsync:        env.boolean(EnvKafkaProducerAsync, DefaultProducerAsync),

		DLQTopic:         dlqTopic(env.str(EnvKafkaDLQTopic, ""), eventsTopic),
		EnableMiddleware: env.boolean(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	problems := append(env.problems, cfg.problems(eventsTopic)...)
	if len(problems) > 0 {
		return nil, formatProblems(problems)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if problems := cfg.problems(""); len(problems) > 0 {
		return formatProblems(problems)
	}
	return nil
}

func (cfg *Config) problems(eventsTopic string) []string {
	var problems []string

	if len(cfg.Brokers) == 0 {
		problems = append(problems, "at least one Kafka broker is required for booking events")
	}
	if cfg.ProducerMaxAttempts <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be positive, got: %d", EnvKafkaProducerMaxAttempts, cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be positive, got: %s", EnvKafkaProducerBatchTimeout, cfg.ProducerBatchTimeout))
	}
	if !slices.Contains(compressions, cfg.ProducerCompression) {
		problems = append(problems, fmt.Sprintf("%s must be one of %v, got: %q", EnvKafkaProducerCompression, compressions, cfg.ProducerCompression))
	}
	if cfg.ProducerRequireAcks < AcksAll || cfg.ProducerRequireAcks > AcksLeader {
		problems = append(problems, fmt.Sprintf("%s must be all, leader or none, got: %d", EnvKafkaProducerRequireAcks, cfg.ProducerRequireAcks))
	}
	if eventsTopic != "" && cfg.DLQTopic == eventsTopic {
		problems = append(problems, fmt.Sprintf("%s must differ from the events topic %q", EnvKafkaDLQTopic, eventsTopic))
	}
	return problems
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	if log == nil {
		return
	}
	log.Info("Booking events producer configured",
		"brokers", cfg.Brokers,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_batch_timeout", cfg.ProducerBatchTimeout,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
		"dlq_topic", cfg.DLQTopic,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func dlqTopic(raw, eventsTopic string) string {
	switch raw = strings.TrimSpace(raw); {
	case strings.EqualFold(raw, DLQDisabled):
		return ""
	case raw != "":
		return raw
	case eventsTopic != "":
		return eventsTopic + DLQSuffix
	}
	return ""
}

func formatProblems(problems []string) error {
	var b strings.Builder
	b.WriteString("kafka configuration validation failed:\n")
	for i, p := range problems {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
	}
	return fmt.Errorf("%s", b.String())
}

// envReader collects parse failures so one Load reports all of them.
type envReader struct {
	lookup   func(string) (string, bool)
	problems []string
}

func (e *envReader) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, raw, want string) {
	e.problems = append(e.problems, fmt.Sprintf("%s=%q is not %s", key, raw, want))
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.value(key); ok {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v, ok := e.value(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "an integer")
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v, ok := e.value(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, "a boolean")
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.value(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, "a duration")
		return def
	}
	return d
}

func (e *envReader) acks(key string, def int) int {
	v, ok := e.value(key)
	if !ok {
		return def
	}
	acks, known := acksByName[strings.ToLower(v)]
	if !known {
		e.fail(key, v, "one of all, leader, none")
		return def
	}
	return acks
}
