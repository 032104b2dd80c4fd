package storage

import "time"

type Task struct {
	ID                string
	Title             string
	Description       string
	Status            string
	CreatedAt         time.Time
	Deadline          time.Time
	CompletedAt       *time.Time
	ReactivationCount int
	PredecessorID     string
	ReminderToken     string
	BufferToken       string
}

type Settings struct {
	MaxActiveTasks int
	BufferMinutes  int
}

type TimePeriod struct {
	ID          string
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
	MaxHours    int
	CreatedAt   time.Time
}

type TaskListFilter struct {
	Status string
	Limit  int
	Offset int
}
