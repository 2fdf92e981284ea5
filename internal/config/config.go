// Package config loads the settings shared by the api gateway and the ledger
// projector. Every field maps to one flat environment key through its
// mapstructure tag and is checked by its validate tag at startup.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Config struct {
	Application ApplicationConfig `mapstructure:",squash"`
	Logging     LoggingConfig     `mapstructure:",squash"`
	Server      ServerConfig      `mapstructure:",squash"`
	Kafka       KafkaConfig       `mapstructure:",squash"`
	Postgres    PostgresConfig    `mapstructure:",squash"`
	MongoDB     MongoDBConfig     `mapstructure:",squash"`
	Redis       RedisConfig       `mapstructure:",squash"`
	Outbox      OutboxConfig      `mapstructure:",squash"`
	WorkerPool  WorkerPoolConfig  `mapstructure:",squash"`
	RateLimit   RateLimitConfig   `mapstructure:",squash"`
	Movement    MovementConfig    `mapstructure:",squash"`
}

type ApplicationConfig struct {
	Env  string `mapstructure:"APP_ENV"`
	Name string `mapstructure:"APP_NAME"`
}

type LoggingConfig struct {
	Level string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn warning error"`
}

// ServerConfig drives the gateway's HTTP listener; the projector only serves metrics on it
type ServerConfig struct {
	Port            int           `mapstructure:"SERVER_PORT" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"SERVER_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT" validate:"gt=0"`
	MetricsPath     string        `mapstructure:"SERVER_METRICS_PATH" validate:"startswith=/"`
}

type KafkaConfig struct {
	Brokers           string        `mapstructure:"KAFKA_BROKERS" validate:"required"`
	EntryTopic        string        `mapstructure:"KAFKA_ENTRY_TOPIC" validate:"required"`
	NumPartitions     int           `mapstructure:"KAFKA_NUM_PARTITIONS"`
	ReplicationFactor int           `mapstructure:"KAFKA_REPLICATION_FACTOR"`
	ConsumerGroup     string        `mapstructure:"KAFKA_CONSUMER_GROUP" validate:"required"`
	MinBytes          int           `mapstructure:"KAFKA_CONSUMER_MIN_BYTES" validate:"gt=0"`
	MaxBytes          int           `mapstructure:"KAFKA_CONSUMER_MAX_BYTES" validate:"gt=0"`
	MaxWait           time.Duration `mapstructure:"KAFKA_CONSUMER_MAX_WAIT" validate:"gt=0"`
	StartOffset       int64         `mapstructure:"KAFKA_CONSUMER_START_OFFSET"`
	DLQTopic          string        `mapstructure:"KAFKA_DLQ_TOPIC" validate:"required"`
}

type PostgresConfig struct {
	URL             string        `mapstructure:"POSTGRES_URL" validate:"required"`
	MaxConns        int32         `mapstructure:"POSTGRES_MAX_CONNS" validate:"gt=0"`
	MinConns        int32         `mapstructure:"POSTGRES_MIN_CONNS" validate:"gt=0"`
	ConnMaxLifetime time.Duration `mapstructure:"POSTGRES_MAX_CONN_LIFETIME" validate:"gt=0"`
	ConnMaxIdleTime time.Duration `mapstructure:"POSTGRES_MAX_CONN_IDLE_TIME" validate:"gt=0"`
	MigrationsPath  string        `mapstructure:"POSTGRES_MIGRATIONS_PATH"`
}

type MongoDBConfig struct {
	URI             string        `mapstructure:"MONGO_URI" validate:"required"`
	Database        string        `mapstructure:"MONGO_DATABASE" validate:"required"`
	Timeout         time.Duration `mapstructure:"MONGO_TIMEOUT" validate:"gt=0"`
	MaxPoolSize     uint64        `mapstructure:"MONGO_MAX_POOL_SIZE" validate:"gt=0"`
	MinPoolSize     uint64        `mapstructure:"MONGO_MIN_POOL_SIZE" validate:"gt=0"`
	MaxConnIdleTime time.Duration `mapstructure:"MONGO_MAX_CONN_IDLE_TIME" validate:"gt=0"`
}

// RedisConfig backs the idempotency cache and the shared rate limit window
type RedisConfig struct {
	Addr           string        `mapstructure:"REDIS_ADDR" validate:"required"`
	Password       string        `mapstructure:"REDIS_PASSWORD"`
	DB             int           `mapstructure:"REDIS_DB"`
	DialTimeout    time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout    time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`
	PoolSize       int           `mapstructure:"REDIS_POOL_SIZE" validate:"gt=0"`
	IdempotencyTTL time.Duration `mapstructure:"REDIS_IDEMPOTENCY_TTL" validate:"gt=0"`
}

type OutboxConfig struct {
	PollingInterval  time.Duration `mapstructure:"OUTBOX_POLLING_INTERVAL" validate:"gt=0"`
	BatchSize        int           `mapstructure:"OUTBOX_BATCH_SIZE" validate:"gt=0"`
	MaxRetryAttempts int           `mapstructure:"OUTBOX_MAX_RETRY_ATTEMPTS" validate:"gt=0"`
}

type WorkerPoolConfig struct {
	Size int `mapstructure:"WORKER_POOL_SIZE" validate:"gt=0"`
}

// RateLimitConfig throttles per owner. A zero RequestsPerSecond turns the
// local limiter off and a zero WindowLimit turns the shared window off.
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	Burst             int           `mapstructure:"RATE_LIMIT_BURST"`
	WindowLimit       int           `mapstructure:"RATE_LIMIT_WINDOW_LIMIT" validate:"gte=0"`
	Window            time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

type MovementConfig struct {
	RemitFeeRate         string `mapstructure:"MOVEMENT_REMIT_FEE_RATE" validate:"required,decimal"`
	RemitMinimumFee      string `mapstructure:"MOVEMENT_REMIT_MINIMUM_FEE" validate:"required,decimal"`
	ReferenceMaxAttempts int    `mapstructure:"MOVEMENT_REFERENCE_MAX_ATTEMPTS" validate:"gt=0"`
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Report violations under the environment key an operator would fix
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

func (c *Config) validate() error {
	var problems []string

	var fieldErrs validator.ValidationErrors
	if err := configValidator.Struct(c); err != nil {
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		problems = append(problems, "RATE_LIMIT_BURST must be greater than 0 when throttling is enabled")
	}
	if c.RateLimit.WindowLimit > 0 && c.RateLimit.Window <= 0 {
		problems = append(problems, "RATE_LIMIT_WINDOW must be greater than 0 when RATE_LIMIT_WINDOW_LIMIT is set")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fe.Field() + " cannot be negative"
	case "startswith":
		return fmt.Sprintf("%s must start with %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "decimal":
		return fe.Field() + " must be a non-negative decimal"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
