package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_Run(t *testing.T) {
	var gotRetention time.Duration
	job := NewJob(
		Task{Name: "notifications", Retention: 90 * 24 * time.Hour, Run: func(ctx context.Context, retention time.Duration) (int, error) {
			gotRetention = retention
			return 12, nil
		}},
		Task{Name: "files", Retention: time.Hour, Run: func(ctx context.Context, retention time.Duration) (int, error) {
			return 3, nil
		}},
	)

	results, err := job.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 90*24*time.Hour, gotRetention)
	assert.Equal(t, "files", results[1].Task)
	assert.Equal(t, 15, Total(results))
}

func TestJob_Run_ContinuesAfterFailure(t *testing.T) {
	boom := errors.New("database gone")
	ranFiles := false
	job := NewJob(
		Task{Name: "notifications", Run: func(ctx context.Context, retention time.Duration) (int, error) {
			return 0, boom
		}},
		Task{Name: "files", Run: func(ctx context.Context, retention time.Duration) (int, error) {
			ranFiles = true
			return 2, nil
		}},
	)

	results, err := job.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.True(t, ranFiles)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Equal(t, 2, Total(results))
}

func TestJob_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewJob(Task{Name: "notifications", Run: func(ctx context.Context, retention time.Duration) (int, error) {
		t.Fatal("task should not run")
		return 0, nil
	}})

	results, err := job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
