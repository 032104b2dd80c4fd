package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)
	CountTasksByStatus(ctx context.Context, status string) (int, error)
	CountTasksByStatusInRange(ctx context.Context, status string, start, end time.Time) (int, error)
	SumReactivationsInRange(ctx context.Context, start, end time.Time) (int, error)

	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, in Settings) error

	CreatePeriod(ctx context.Context, in TimePeriod) error
	GetPeriod(ctx context.Context, id string) (TimePeriod, error)
	UpdatePeriod(ctx context.Context, in TimePeriod) error
	DeletePeriod(ctx context.Context, id string) error
	ListPeriods(ctx context.Context) ([]TimePeriod, error)
}
