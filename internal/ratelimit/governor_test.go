package ratelimit

import (
	"errors"
	"testing"
	"time"

	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/model"
)

func testConfig() Config {
	return Config{
		BaseDelay:              100 * time.Millisecond,
		MinDelay:               10 * time.Millisecond,
		MaxDelay:               1 * time.Second,
		ThrottleRecoveryPeriod: 50 * time.Millisecond,
	}
}

func TestDelayForSizeBuckets(t *testing.T) {
	att := []model.Attachment{{BlobKey: "a"}}

	cases := []struct {
		name  string
		bytes int64
		want  time.Duration
	}{
		{"small", 1024, 100 * time.Millisecond},
		{"over 1MiB", 2 * 1024 * 1024, 150 * time.Millisecond},
		{"over 5MiB", 6 * 1024 * 1024, 200 * time.Millisecond},
		{"over 10MiB", 20 * 1024 * 1024, 300 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(testConfig())
			delay := g.DelayFor(att, map[string]int64{"a": tc.bytes})
			assert.Equal(t, tc.want, delay)
		})
	}
}

func TestDelayForClampsToMax(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = 900 * time.Millisecond
	g := New(cfg)
	att := []model.Attachment{{BlobKey: "a"}}
	delay := g.DelayFor(att, map[string]int64{"a": 20 * 1024 * 1024})
	assert.Equal(t, cfg.MaxDelay, delay)
}

func TestNoteThrottleDoublesAndCaps(t *testing.T) {
	g := New(testConfig())
	require.Equal(t, 100*time.Millisecond, g.CurrentDelay())

	g.NoteThrottle()
	assert.Equal(t, 200*time.Millisecond, g.CurrentDelay())

	g.NoteThrottle()
	g.NoteThrottle()
	g.NoteThrottle()
	assert.Equal(t, 1*time.Second, g.CurrentDelay(), "delay should clamp at max_delay")
}

func TestNoteSuccessDecaysOnlyAfterRecoveryPeriod(t *testing.T) {
	g := New(testConfig())
	g.NoteThrottle()
	before := g.CurrentDelay()

	g.NoteSuccess()
	assert.Equal(t, before, g.CurrentDelay(), "should not decay before recovery period elapses")

	time.Sleep(60 * time.Millisecond)
	g.NoteSuccess()
	assert.Less(t, g.CurrentDelay(), before, "should decay once recovery period has elapsed")
}

func TestNoteSuccessNoopWithoutPriorThrottle(t *testing.T) {
	g := New(testConfig())
	g.NoteSuccess()
	assert.Equal(t, 100*time.Millisecond, g.CurrentDelay())
}

func TestNoteSuccessFloorsAtMinDelay(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = 11 * time.Millisecond
	cfg.ThrottleRecoveryPeriod = time.Millisecond
	g := New(cfg)
	g.NoteThrottle()
	time.Sleep(5 * time.Millisecond)
	for i := 0; i < 20; i++ {
		g.NoteSuccess()
		time.Sleep(time.Millisecond)
	}
	assert.GreaterOrEqual(t, g.CurrentDelay(), cfg.MinDelay)
}

type fakeAPIError struct{ code string }

func (e fakeAPIError) Error() string                 { return "api error: " + e.code }
func (e fakeAPIError) ErrorCode() string              { return e.code }
func (e fakeAPIError) ErrorMessage() string           { return e.code }
func (e fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

func TestIsThrottleByMarkerText(t *testing.T) {
	assert.True(t, IsThrottle(errors.New("request was Throttled by upstream")))
	assert.True(t, IsThrottle(errors.New("Rate Limit exceeded, try later")))
	assert.False(t, IsThrottle(errors.New("message rejected: invalid recipient")))
	assert.False(t, IsThrottle(nil))
}

func TestIsThrottleByAPIErrorCode(t *testing.T) {
	assert.True(t, IsThrottle(fakeAPIError{code: "Throttling"}))
	assert.True(t, IsThrottle(fakeAPIError{code: "SlowDown"}))
	assert.False(t, IsThrottle(fakeAPIError{code: "MessageRejected"}))
}
