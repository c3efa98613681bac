package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mietevo/mietevo-backend/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Storage    StorageConfig
	AI         AIConfig `validate:"required"`
	Chat       ChatConfig
	Queue      QueueConfig
	Analytics  AnalyticsConfig
	Logging    LoggingConfig `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StorageConfig points at the S3-compatible object storage bucket holding
// compressed inbound email bodies.
type StorageConfig struct {
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	EmailBucket string
}

type AIConfig struct {
	APIKey          string `validate:"required"`
	BaseURL         string
	ChatModel       string
	ExtractionModel string
}

// ChatConfig bounds the chat gateway: fixed-window rate limiting and call
// retry.
type ChatConfig struct {
	WindowSeconds     int
	MaxRequests       int
	MaxAttempts       int
	BackoffBaseMillis int
}

type QueueConfig struct {
	Name string
	// DeleteOnFailure keeps the observed poison-message policy: a failed task
	// is still deleted so the queue keeps draining. Disable to let the lease
	// expire and the message be redelivered.
	DeleteOnFailure bool
}

type AnalyticsConfig struct {
	APIKey   string
	Endpoint string
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
	// OTLP log collection sink; disabled when Token is empty
	OTLPEndpoint string
	OTLPToken    string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/mietevo")

	v.SetEnvPrefix("MIETEVO")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("ai.chatmodel", "gemini-2.0-flash")
	v.SetDefault("ai.extractionmodel", "gemini-2.0-flash")
	v.SetDefault("chat.windowseconds", 60)
	v.SetDefault("chat.maxrequests", 10)
	v.SetDefault("chat.maxattempts", 3)
	v.SetDefault("chat.backoffbasemillis", 1000)
	v.SetDefault("queue.name", types.ApplicationQueue)
	v.SetDefault("queue.deleteonfailure", true)
	v.SetDefault("logging.level", string(types.LogLevelInfo))
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		AI:         AIConfig{APIKey: "test"},
		Chat: ChatConfig{
			WindowSeconds:     60,
			MaxRequests:       10,
			MaxAttempts:       3,
			BackoffBaseMillis: 1000,
		},
		Queue:   QueueConfig{Name: types.ApplicationQueue, DeleteOnFailure: true},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
