package queue

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Item is one unit of scheduled work: generate feedback for one user in one
// run. At most one item per user may be active (pending or processing).
type Item struct {
	ID           string
	UserID       string
	Status       Status
	Priority     int
	RetryCount   int
	MaxRetries   int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	Metadata     map[string]any
}

// Stats is a point-in-time snapshot of queue item counts per status.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// DuplicateEnqueueError reports an enqueue attempt for a user that already
// has an active queue item.
type DuplicateEnqueueError struct {
	UserID string
	Status Status
}

func (e *DuplicateEnqueueError) Error() string {
	return fmt.Sprintf("user %s is already queued with status %s", e.UserID, e.Status)
}

// UnavailableError wraps a failure to reach the backing store. Callers are
// expected to degrade rather than abort the whole run.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("queue store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
