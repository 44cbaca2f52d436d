package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

aws:
  region: "us-west-2"
  timeout_seconds: 45

store:
  dynamodb_table: "campaigns-test"

blob:
  s3_bucket: "attachments-test"

queue:
  queue_url: "https://sqs.us-west-2.amazonaws.com/123/work-test"
  poll_wait_seconds: 15
  visibility_timeout_seconds: 90
  batch_size: 5

rate_limit:
  base_delay_seconds: 0.2
  min_delay_seconds: 0.02
  max_delay_seconds: 10
  throttle_recovery_period_seconds: 120

worker:
  pool_size: 20
  invocation_budget_seconds: 600
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, 45, cfg.AWS.TimeoutSec)

	assert.Equal(t, "campaigns-test", cfg.Store.DynamoDBTable)
	assert.Equal(t, "attachments-test", cfg.Blob.S3Bucket)

	assert.Equal(t, "https://sqs.us-west-2.amazonaws.com/123/work-test", cfg.Queue.QueueURL)
	assert.Equal(t, 15, cfg.Queue.PollWaitSeconds)
	assert.Equal(t, 90, cfg.Queue.VisibilityTimeoutSec)
	assert.Equal(t, int32(5), cfg.Queue.BatchSize)

	assert.Equal(t, 0.2, cfg.RateLimit.BaseDelaySeconds)
	assert.Equal(t, 20, cfg.Worker.PoolSize)
	assert.Equal(t, 600, cfg.Worker.InvocationBudgetSec)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  dynamodb_table: "campaigns"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, 30, cfg.AWS.TimeoutSec)
	assert.Equal(t, 20, cfg.Queue.PollWaitSeconds)
	assert.Equal(t, 60, cfg.Queue.VisibilityTimeoutSec)
	assert.Equal(t, int32(10), cfg.Queue.BatchSize)
	assert.Equal(t, 0.1, cfg.RateLimit.BaseDelaySeconds)
	assert.Equal(t, 5.0, cfg.RateLimit.MaxDelaySeconds)
	assert.Equal(t, 10, cfg.Worker.PoolSize)
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
aws:
  region: "us-east-1"
queue:
  queue_url: "https://file-url.example/queue"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	os.Setenv("AWS_REGION", "eu-west-1")
	os.Setenv("WORK_QUEUE_URL", "https://env-url.example/queue")
	os.Setenv("WORKER_POOL_SIZE", "42")
	defer func() {
		os.Unsetenv("AWS_REGION")
		os.Unsetenv("WORK_QUEUE_URL")
		os.Unsetenv("WORKER_POOL_SIZE")
	}()

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "https://env-url.example/queue", cfg.Queue.QueueURL)
	assert.Equal(t, 42, cfg.Worker.PoolSize)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestAWSTimeout(t *testing.T) {
	cfg := AWSConfig{TimeoutSec: 45}
	assert.Equal(t, 45*1000000000, int(cfg.Timeout().Nanoseconds()))
}

func TestQueuePollWait(t *testing.T) {
	cfg := QueueConfig{PollWaitSeconds: 20}
	assert.Equal(t, 20*1000000000, int(cfg.PollWait().Nanoseconds()))
}

func TestRateLimitDurations(t *testing.T) {
	cfg := RateLimitConfig{
		BaseDelaySeconds:              0.1,
		MinDelaySeconds:               0.01,
		MaxDelaySeconds:               5,
		ThrottleRecoveryPeriodSeconds: 60,
	}
	assert.Equal(t, 100*1000000, int(cfg.BaseDelay().Nanoseconds()))
	assert.Equal(t, 60*1000000000, int(cfg.ThrottleRecoveryPeriod().Nanoseconds()))
}
