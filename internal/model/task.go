package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidStatus = errors.New("model: invalid task status")

type Status string

const (
	StatusActive            Status = "active"
	StatusCompleted         Status = "completed"
	StatusExpiredUnfinished Status = "expired_unfinished"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusExpiredUnfinished:
		return true
	default:
		return false
	}
}

type Task struct {
	ID                string
	Title             string
	Description       string
	Status            Status
	CreatedAt         time.Time
	Deadline          time.Time
	CompletedAt       *time.Time
	ReactivationCount int
	PredecessorID     string
	ReminderToken     string
	BufferToken       string
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.Deadline.IsZero() {
		return errors.New("model: task deadline is required")
	}
	if !t.Deadline.After(t.CreatedAt) {
		return errors.New("model: task deadline must be after created_at")
	}
	if t.ReactivationCount < 0 {
		return errors.New("model: task reactivation_count must not be negative")
	}
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task status is completed")
	}
	if t.Status != StatusCompleted && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task status is not completed")
	}
	return nil
}

// InBufferZone reports whether now falls in the grace stretch directly after
// the deadline. The zone is never persisted as a status.
func (t Task) InBufferZone(now time.Time, buffer time.Duration) bool {
	return now.After(t.Deadline) && !now.After(t.Deadline.Add(buffer))
}

// PastBuffer reports whether the deadline plus its buffer has fully elapsed,
// at which point an active task is due for expiration.
func (t Task) PastBuffer(now time.Time, buffer time.Duration) bool {
	return now.After(t.Deadline.Add(buffer))
}

func (t Task) Remaining(now time.Time) time.Duration {
	return t.Deadline.Sub(now)
}
