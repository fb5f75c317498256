// Package reporting computes read-only aggregates over projects, tasks and
// risks: weighted progress, budget summaries, risk metrics and completion
// trends.
package reporting

import (
	"math"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

// Status weights for the progress calculation. A task in review counts for
// more than one in progress because the work itself is done.
const (
	weightCompleted  = 1.0
	weightReview     = 0.75
	weightInProgress = 0.5
	weightTodo       = 0.0
)

// TaskCounts holds per-status task totals for a project.
type TaskCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Review     int `json:"review"`
	InProgress int `json:"inProgress"`
	Todo       int `json:"todo"`
}

// CountTasks buckets tasks by status.
func CountTasks(tasks []*models.Task) TaskCounts {
	counts := TaskCounts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			counts.Completed++
		case models.TaskReview:
			counts.Review++
		case models.TaskInProgress:
			counts.InProgress++
		case models.TaskTodo:
			counts.Todo++
		}
	}
	return counts
}

// Progress computes weighted completion as a percentage rounded to two
// decimals. An empty task list is 0, not NaN.
func Progress(tasks []*models.Task) float64 {
	counts := CountTasks(tasks)
	if counts.Total == 0 {
		return 0
	}

	weighted := float64(counts.Completed)*weightCompleted +
		float64(counts.Review)*weightReview +
		float64(counts.InProgress)*weightInProgress +
		float64(counts.Todo)*weightTodo

	return round2(weighted / float64(counts.Total) * 100)
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
