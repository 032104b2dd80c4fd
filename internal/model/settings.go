package model

import (
	"errors"
	"time"
)

const (
	DefaultMaxActiveTasks = 3
	DefaultBufferMinutes  = 30
)

type Settings struct {
	MaxActiveTasks int
	BufferMinutes  int
}

func DefaultSettings() Settings {
	return Settings{
		MaxActiveTasks: DefaultMaxActiveTasks,
		BufferMinutes:  DefaultBufferMinutes,
	}
}

func (s Settings) Validate() error {
	if s.MaxActiveTasks < 1 {
		return errors.New("model: max_active_tasks must be at least 1")
	}
	if s.BufferMinutes < 0 {
		return errors.New("model: buffer_minutes must not be negative")
	}
	return nil
}

func (s Settings) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}
