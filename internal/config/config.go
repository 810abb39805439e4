/**
 * @description
 * This package handles the configuration management for the assignment-service.
 * It uses the Viper library to read configuration from environment variables or an
 * optional .env file, providing a centralized way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 * - github.com/sirupsen/logrus: Warnings for coerced values.
 */

package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	defaultServerPort            = "8080"
	defaultAssignmentQueue       = "assignment_queue"
	defaultReconnectMaxAttempts  = 5
	defaultReconnectDelaySeconds = 5
	defaultLockPrefix            = "assignment:candidates"
	defaultLockTTLSeconds        = 30
	defaultNotifierTimeout       = 15
	defaultLogLevel              = "info"
	defaultLogFormat             = "text"
)

// Config holds all the configuration variables for the assignment-service.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	AssignmentQueue        string `mapstructure:"ASSIGNMENT_QUEUE"`
	AssignmentExchange     string `mapstructure:"ASSIGNMENT_EXCHANGE"`
	AssignmentRoutingKey   string `mapstructure:"ASSIGNMENT_ROUTING_KEY"`
	ReconnectMaxAttempts   int    `mapstructure:"RECONNECT_MAX_ATTEMPTS"`
	ReconnectDelaySeconds  int    `mapstructure:"RECONNECT_DELAY_SECONDS"`
	InternalAPIKey         string `mapstructure:"INTERNAL_API_KEY"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	AssignmentLockPrefix   string `mapstructure:"ASSIGNMENT_LOCK_PREFIX"`
	AssignmentLockTTLSec   int    `mapstructure:"ASSIGNMENT_LOCK_TTL_SECONDS"`
	NotifierTimeoutSeconds int    `mapstructure:"NOTIFIER_TIMEOUT_SECONDS"`
	LogLevel               string `mapstructure:"LOG_LEVEL"`
	LogFormat              string `mapstructure:"LOG_FORMAT"`
}

// ReconnectDelay is the fixed pause between broker reconnect attempts.
func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

// AssignmentLockTTL bounds how long a candidate-set lock is held.
func (c Config) AssignmentLockTTL() time.Duration {
	return time.Duration(c.AssignmentLockTTLSec) * time.Second
}

// NotifierTimeout is the HTTP timeout of the outbound notification client.
func (c Config) NotifierTimeout() time.Duration {
	return time.Duration(c.NotifierTimeoutSeconds) * time.Second
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", defaultServerPort)
	viper.SetDefault("ASSIGNMENT_QUEUE", defaultAssignmentQueue)
	viper.SetDefault("RECONNECT_MAX_ATTEMPTS", defaultReconnectMaxAttempts)
	viper.SetDefault("RECONNECT_DELAY_SECONDS", defaultReconnectDelaySeconds)
	viper.SetDefault("ASSIGNMENT_LOCK_PREFIX", defaultLockPrefix)
	viper.SetDefault("ASSIGNMENT_LOCK_TTL_SECONDS", defaultLockTTLSeconds)
	viper.SetDefault("NOTIFIER_TIMEOUT_SECONDS", defaultNotifierTimeout)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("LOG_FORMAT", defaultLogFormat)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL", "RABBITMQ_URL", "AMQP_URL")
	_ = viper.BindEnv("ASSIGNMENT_QUEUE")
	_ = viper.BindEnv("ASSIGNMENT_EXCHANGE")
	_ = viper.BindEnv("ASSIGNMENT_ROUTING_KEY")
	_ = viper.BindEnv("RECONNECT_MAX_ATTEMPTS")
	_ = viper.BindEnv("RECONNECT_DELAY_SECONDS")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("ASSIGNMENT_LOCK_PREFIX")
	_ = viper.BindEnv("ASSIGNMENT_LOCK_TTL_SECONDS")
	_ = viper.BindEnv("NOTIFIER_TIMEOUT_SECONDS")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_FORMAT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithField("component", "config").WithError(err).Warn("failed to read config file; using environment values")
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.AssignmentQueue = strings.TrimSpace(config.AssignmentQueue)
	if config.AssignmentQueue == "" {
		config.AssignmentQueue = defaultAssignmentQueue
	}
	config.AssignmentExchange = strings.TrimSpace(config.AssignmentExchange)
	config.AssignmentRoutingKey = strings.TrimSpace(config.AssignmentRoutingKey)
	if config.AssignmentExchange != "" && config.AssignmentRoutingKey == "" {
		config.AssignmentRoutingKey = config.AssignmentQueue
	}
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.AssignmentLockPrefix = strings.TrimSuffix(strings.TrimSpace(config.AssignmentLockPrefix), ":")
	if config.AssignmentLockPrefix == "" {
		config.AssignmentLockPrefix = defaultLockPrefix
	}

	config.ReconnectMaxAttempts = positiveOrDefault("RECONNECT_MAX_ATTEMPTS", config.ReconnectMaxAttempts, defaultReconnectMaxAttempts)
	config.ReconnectDelaySeconds = positiveOrDefault("RECONNECT_DELAY_SECONDS", config.ReconnectDelaySeconds, defaultReconnectDelaySeconds)
	config.AssignmentLockTTLSec = positiveOrDefault("ASSIGNMENT_LOCK_TTL_SECONDS", config.AssignmentLockTTLSec, defaultLockTTLSeconds)
	config.NotifierTimeoutSeconds = positiveOrDefault("NOTIFIER_TIMEOUT_SECONDS", config.NotifierTimeoutSeconds, defaultNotifierTimeout)

	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	config.LogFormat = strings.ToLower(strings.TrimSpace(config.LogFormat))
	if config.LogFormat != "json" {
		config.LogFormat = defaultLogFormat
	}

	return
}

func positiveOrDefault(key string, value, fallback int) int {
	if value > 0 {
		return value
	}
	logrus.WithFields(logrus.Fields{
		"component": "config",
		"key":       key,
		"value":     value,
		"default":   fallback,
	}).Warn("non-positive value configured; using default")
	return fallback
}
