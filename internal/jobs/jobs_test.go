package jobs

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"short message", "short error", "short error"},
		{"exactly 500 characters", strings.Repeat("a", 500), strings.Repeat("a", 500)},
		{"501 characters truncated to 500", strings.Repeat("a", 501), strings.Repeat("a", 500)},
		{"long message truncated", strings.Repeat("b", 1000), strings.Repeat("b", 500)},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 500)
		})
	}
}

func TestDefaultQueueConfig(t *testing.T) {
	config := DefaultQueueConfig("batch_runs", "actor_id")

	assert.Equal(t, "batch_runs", config.TableName)
	assert.Equal(t, "actor_id", config.EntityIDColumn)
	assert.Equal(t, 0, config.MaxAttempts) // unlimited by default
	assert.Equal(t, 60, config.BaseRetryDelaySec)
	assert.Equal(t, 3600, config.MaxRetryDelaySec)
	assert.Equal(t, 10, config.BatchSize)
}

func TestJobStatusConstants(t *testing.T) {
	assert.Equal(t, JobStatus("pending"), StatusPending)
	assert.Equal(t, JobStatus("processing"), StatusProcessing)
	assert.Equal(t, JobStatus("completed"), StatusCompleted)
	assert.Equal(t, JobStatus("failed"), StatusFailed)
}

func TestNewQueue_AppliesDefaults(t *testing.T) {
	q := NewQueue(nil, QueueConfig{TableName: "batch_runs", EntityIDColumn: "actor_id"}, testLogger())

	assert.Equal(t, 60, q.config.BaseRetryDelaySec)
	assert.Equal(t, 3600, q.config.MaxRetryDelaySec)
	assert.Equal(t, 10, q.config.BatchSize)
}

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig("enrichment")

	assert.Equal(t, "enrichment", config.Name)
	assert.Equal(t, 5*time.Second, config.PollInterval)
	assert.Equal(t, 10, config.BatchSize)
	assert.Equal(t, 10, config.StaleThresholdMinutes)
	assert.True(t, config.RecoverStaleOnStart)
}

func TestWorker_IncrementCounters(t *testing.T) {
	w := &Worker{}

	w.IncrementSuccess()
	w.IncrementSuccess()
	w.IncrementFailure()
	w.IncrementProcessed() // processed but neither success nor failure

	metrics := w.Metrics()
	assert.Equal(t, int64(4), metrics.Processed)
	assert.Equal(t, int64(2), metrics.Succeeded)
	assert.Equal(t, int64(1), metrics.Failed)
}

func TestWorker_IsRunning(t *testing.T) {
	w := &Worker{}
	assert.False(t, w.IsRunning())

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()
	assert.True(t, w.IsRunning())
}

func TestWorker_Metrics_Concurrent(t *testing.T) {
	w := &Worker{}

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				w.IncrementSuccess()
				w.IncrementFailure()
				_ = w.Metrics() // read while writing
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	metrics := w.Metrics()
	assert.Equal(t, int64(2000), metrics.Processed)
	assert.Equal(t, int64(1000), metrics.Succeeded)
	assert.Equal(t, int64(1000), metrics.Failed)
}
