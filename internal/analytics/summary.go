// ABOUTME: Read-side task analytics - per-account summary counts and histograms
// ABOUTME: Pure function of current storage state; nothing is cached or persisted

package analytics

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/store"
)

// Summary holds derived counts for one account's tasks. The ByStatus and
// ByPriority histograms each sum to Total.
type Summary struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Overdue        int            `json:"overdue"`
	CompletionRate float64        `json:"completionRate"`
	ByStatus       map[string]int `json:"countsByStatus"`
	ByPriority     map[string]int `json:"countsByPriority"`
}

// Aggregator derives task summaries from the storage engine.
type Aggregator struct {
	store store.TaskStore
}

// NewAggregator creates an aggregator over the given task collection.
func NewAggregator(s store.TaskStore) *Aggregator {
	return &Aggregator{store: s}
}

// Summarize scans all tasks owned by the account and derives the summary.
// A task is overdue when its due date has passed and it is not done.
// CompletionRate is 0 when the account has no tasks.
func (a *Aggregator) Summarize(ctx context.Context, accountID string) (*Summary, error) {
	tasks, err := a.store.ListTasksByOwner(ctx, accountID, store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ByStatus: map[string]int{
			store.TaskStatusTodo:       0,
			store.TaskStatusInProgress: 0,
			store.TaskStatusReview:     0,
			store.TaskStatusDone:       0,
		},
		ByPriority: map[string]int{
			store.PriorityLow:    0,
			store.PriorityMedium: 0,
			store.PriorityHigh:   0,
			store.PriorityUrgent: 0,
		},
	}

	now := time.Now()
	for _, task := range tasks {
		summary.Total++
		summary.ByStatus[task.Status]++
		summary.ByPriority[task.Priority]++

		if task.Status == store.TaskStatusDone {
			summary.Completed++
		} else if task.DueDate != nil && task.DueDate.Before(now) {
			summary.Overdue++
		}
	}

	if summary.Total > 0 {
		summary.CompletionRate = float64(summary.Completed) / float64(summary.Total)
	}

	return summary, nil
}
