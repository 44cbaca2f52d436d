// Package config loads the campaign engine's configuration: a YAML file
// layered with a .env/environment-variable override, mirroring the
// house convention of nested structs with Timeout()-style duration
// helpers and ECS/Lambda-aware AWS credential detection.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the campaign engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	AWS       AWSConfig       `yaml:"aws"`
	Store     StoreConfig     `yaml:"store"`
	Blob      BlobConfig      `yaml:"blob"`
	Queue     QueueConfig     `yaml:"queue"`
	SES       SESConfig       `yaml:"ses"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds the intake CLI/front door's listen settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// AWSConfig holds credentials and region shared by every AWS-backed
// collaborator (Campaign Store, Blob Store, Work Queue, Mail Provider).
type AWSConfig struct {
	Region     string `yaml:"region"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Profile    string `yaml:"profile"`
	TimeoutSec int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured AWS client timeout as a duration.
func (c AWSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// GetProfile returns the AWS profile, preferring the default IAM role
// chain whenever running on ECS/Lambda.
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return ""
	}
	return c.Profile
}

// StoreConfig configures the Campaign Store's DynamoDB table.
type StoreConfig struct {
	DynamoDBTable string `yaml:"dynamodb_table"`
}

// BlobConfig configures the Blob Store's S3 bucket.
type BlobConfig struct {
	S3Bucket string `yaml:"s3_bucket"`
}

// QueueConfig configures the Work Queue's SQS queue.
type QueueConfig struct {
	QueueURL             string `yaml:"queue_url"`
	PollWaitSeconds      int    `yaml:"poll_wait_seconds"`
	VisibilityTimeoutSec int    `yaml:"visibility_timeout_seconds"`
	BatchSize            int32  `yaml:"batch_size"`
}

// PollWait returns the long-poll wait time as a duration. SQSQueue does
// not read it: its Receive always long-polls for 20 seconds.
func (c QueueConfig) PollWait() time.Duration {
	return time.Duration(c.PollWaitSeconds) * time.Second
}

// VisibilityTimeout returns the configured visibility timeout.
func (c QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(c.VisibilityTimeoutSec) * time.Second
}

// SESConfig holds Mail Provider (AWS SES) settings.
type SESConfig struct {
	Region         string `yaml:"region"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig holds the Rate Governor's tunables.
type RateLimitConfig struct {
	BaseDelaySeconds              float64 `yaml:"base_delay_seconds"`
	MinDelaySeconds               float64 `yaml:"min_delay_seconds"`
	MaxDelaySeconds               float64 `yaml:"max_delay_seconds"`
	ThrottleRecoveryPeriodSeconds float64 `yaml:"throttle_recovery_period_seconds"`
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// BaseDelay, MinDelay, MaxDelay, and ThrottleRecoveryPeriod convert the
// YAML float-seconds tunables into durations for ratelimit.Config.
func (c RateLimitConfig) BaseDelay() time.Duration  { return seconds(c.BaseDelaySeconds) }
func (c RateLimitConfig) MinDelay() time.Duration   { return seconds(c.MinDelaySeconds) }
func (c RateLimitConfig) MaxDelay() time.Duration   { return seconds(c.MaxDelaySeconds) }
func (c RateLimitConfig) ThrottleRecoveryPeriod() time.Duration {
	return seconds(c.ThrottleRecoveryPeriodSeconds)
}

// WorkerConfig holds the Dispatch Worker pool's tunables.
type WorkerConfig struct {
	PoolSize            int `yaml:"pool_size"`
	InvocationBudgetSec int `yaml:"invocation_budget_seconds"`
}

// InvocationBudget returns the per-invocation wall-clock budget.
func (c WorkerConfig) InvocationBudget() time.Duration {
	return time.Duration(c.InvocationBudgetSec) * time.Second
}

// Load reads and parses the configuration file, filling in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.TimeoutSec == 0 {
		cfg.AWS.TimeoutSec = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = cfg.AWS.Region
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Queue.PollWaitSeconds == 0 {
		cfg.Queue.PollWaitSeconds = 20
	}
	if cfg.Queue.VisibilityTimeoutSec == 0 {
		cfg.Queue.VisibilityTimeoutSec = 60
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 10
	}
	if cfg.RateLimit.BaseDelaySeconds == 0 {
		cfg.RateLimit.BaseDelaySeconds = 0.1
	}
	if cfg.RateLimit.MinDelaySeconds == 0 {
		cfg.RateLimit.MinDelaySeconds = 0.01
	}
	if cfg.RateLimit.MaxDelaySeconds == 0 {
		cfg.RateLimit.MaxDelaySeconds = 5.0
	}
	if cfg.RateLimit.ThrottleRecoveryPeriodSeconds == 0 {
		cfg.RateLimit.ThrottleRecoveryPeriodSeconds = 60
	}
	if cfg.Worker.PoolSize == 0 {
		cfg.Worker.PoolSize = 10
	}
	if cfg.Worker.InvocationBudgetSec == 0 {
		cfg.Worker.InvocationBudgetSec = 300
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars on
// ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("CAMPAIGN_TABLE"); v != "" {
		cfg.Store.DynamoDBTable = v
	}
	if v := os.Getenv("ATTACHMENT_BUCKET"); v != "" {
		cfg.Blob.S3Bucket = v
	}
	if v := os.Getenv("WORK_QUEUE_URL"); v != "" {
		cfg.Queue.QueueURL = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Worker.PoolSize = n
		}
	}

	return cfg, nil
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %q is not positive", s)
	}
	return n, nil
}
