// Package cleanup runs the retention tasks of the batch job: read
// notifications and soft-deleted files past their retention period.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is one retention pass. Run returns how many records it removed.
type Task struct {
	Name      string
	Retention time.Duration
	Run       func(ctx context.Context, retention time.Duration) (int, error)
}

// Result reports the outcome of one task.
type Result struct {
	Task    string
	Removed int
	Err     error
}

type Job struct {
	tasks []Task
}

func NewJob(tasks ...Task) *Job {
	return &Job{tasks: tasks}
}

// Run executes every task in order. A failing task is logged and does not
// stop the ones after it; the returned error is the first failure.
func (j *Job) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(j.tasks))
	var firstErr error

	for _, t := range j.tasks {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cutoff := time.Now().Add(-t.Retention)
		log.Info().
			Str("task", t.Name).
			Time("cutoff", cutoff).
			Msg("starting cleanup task")

		n, err := t.Run(ctx, t.Retention)
		results = append(results, Result{Task: t.Name, Removed: n, Err: err})
		if err != nil {
			log.Error().Err(err).Str("task", t.Name).Int("removed", n).Msg("cleanup task failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Str("task", t.Name).Int("removed", n).Msg("cleanup task finished")
	}

	return results, firstErr
}

// Total sums the records removed across results.
func Total(results []Result) int {
	total := 0
	for _, r := range results {
		total += r.Removed
	}
	return total
}
