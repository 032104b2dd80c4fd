package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timebox/internal/model"
	"timebox/internal/notify"
	"timebox/internal/schedule"
	"timebox/internal/storage"
)

type CreateInput struct {
	Title       string
	Description string
	// Deadline overrides the default full-window deadline. It must land
	// within the open window's maximum.
	Deadline *time.Time
}

type EditInput struct {
	Title       *string
	Description *string
	Deadline    *time.Time
}

// Create admits a new active task. It fails with CapacityExceeded when the
// active set is full, WindowClosed outside every period, and
// DeadlineInPast/DeadlineTooFar for a bad custom deadline.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, errors.New("lifecycle: title is required")
	}
	now := s.now()

	settings, err := s.settingsLocked(ctx)
	if err != nil {
		return model.Task{}, err
	}
	if err := s.checkCapacityLocked(ctx, settings); err != nil {
		return model.Task{}, err
	}

	periods, err := s.periodsLocked(ctx)
	if err != nil {
		return model.Task{}, err
	}
	var deadline time.Time
	if in.Deadline != nil {
		if err := schedule.ValidateCustomDeadline(now, *in.Deadline, periods); err != nil {
			return model.Task{}, err
		}
		deadline = in.Deadline.UTC()
	} else {
		deadline, err = schedule.CalculateDeadline(now, periods)
		if err != nil {
			return model.Task{}, err
		}
	}

	task := model.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      model.StatusActive,
		CreatedAt:   now,
		Deadline:    deadline,
	}
	s.scheduleNotices(&task, now)
	if err := s.repo.CreateTask(ctx, toRecord(task)); err != nil {
		s.cancelNotices(&task)
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", map[string]any{
		"task_id":  task.ID,
		"title":    task.Title,
		"deadline": task.Deadline.Format(time.RFC3339),
	})
	s.refreshLocked(ctx)
	return task, nil
}

// Edit changes title, description, or deadline of an active task. A deadline
// change is validated against the currently open window and reschedules both
// notices.
func (s *Service) Edit(ctx context.Context, id string, in EditInput) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.getTaskLocked(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if task.Status != model.StatusActive {
		return model.Task{}, model.NewFailure(model.CodeAlreadyExpired,
			"task %q is no longer active", task.Title)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return model.Task{}, errors.New("lifecycle: title is required")
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.Deadline != nil {
		now := s.now()
		periods, err := s.periodsLocked(ctx)
		if err != nil {
			return model.Task{}, err
		}
		if err := schedule.ValidateCustomDeadline(now, *in.Deadline, periods); err != nil {
			return model.Task{}, err
		}
		s.cancelNotices(&task)
		task.Deadline = in.Deadline.UTC()
		s.scheduleNotices(&task, now)
	}

	if err := s.repo.UpdateTask(ctx, toRecord(task)); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.refreshLocked(ctx)
	return task, nil
}

// Complete marks an active task finished. The call is accepted through the
// buffer zone and fails with AlreadyExpired once deadline plus buffer has
// elapsed. Completing an already completed task is a no-op.
func (s *Service) Complete(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.getTaskLocked(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if task.Status == model.StatusCompleted {
		return task, nil
	}
	if task.Status == model.StatusExpiredUnfinished {
		return model.Task{}, model.NewFailure(model.CodeAlreadyExpired,
			"task %q already expired unfinished", task.Title)
	}

	now := s.now()
	settings, err := s.settingsLocked(ctx)
	if err != nil {
		return model.Task{}, err
	}
	if task.PastBuffer(now, settings.Buffer()) {
		return model.Task{}, model.NewFailure(model.CodeAlreadyExpired,
			"completion buffer for %q ended at %s",
			task.Title, task.Deadline.Add(settings.Buffer()).Format("15:04"))
	}

	s.cancelNotices(&task)
	task.Status = model.StatusCompleted
	task.CompletedAt = &now
	if err := s.repo.UpdateTask(ctx, toRecord(task)); err != nil {
		return model.Task{}, fmt.Errorf("complete task: %w", err)
	}
	s.logger.Info("task completed", map[string]any{"task_id": task.ID, "title": task.Title})
	s.refreshLocked(ctx)
	return task, nil
}

// Delete removes a task in any status and withdraws its pending notices.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.getTaskLocked(ctx, id)
	if err != nil {
		return err
	}
	s.cancelNotices(&task)
	if err := s.repo.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.NewFailure(model.CodeNotFound, "no task with id %q", id)
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info("task deleted", map[string]any{"task_id": task.ID, "title": task.Title})
	s.refreshLocked(ctx)
	return nil
}

// Reactivate spawns a fresh active task from an expired one. The original
// record is left untouched; the successor carries an incremented reactivation
// count, a reference to its predecessor, and a full-window deadline.
func (s *Service) Reactivate(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, err := s.getTaskLocked(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if original.Status != model.StatusExpiredUnfinished {
		return model.Task{}, model.NewFailure(model.CodeNotFound,
			"task %q is not expired, only expired tasks can be reactivated", original.Title)
	}

	settings, err := s.settingsLocked(ctx)
	if err != nil {
		return model.Task{}, err
	}
	if err := s.checkCapacityLocked(ctx, settings); err != nil {
		return model.Task{}, err
	}

	now := s.now()
	periods, err := s.periodsLocked(ctx)
	if err != nil {
		return model.Task{}, err
	}
	deadline, err := schedule.CalculateDeadline(now, periods)
	if err != nil {
		return model.Task{}, err
	}

	successor := model.Task{
		ID:                uuid.NewString(),
		Title:             original.Title,
		Description:       original.Description,
		Status:            model.StatusActive,
		CreatedAt:         now,
		Deadline:          deadline,
		ReactivationCount: original.ReactivationCount + 1,
		PredecessorID:     original.ID,
	}
	s.scheduleNotices(&successor, now)
	if err := s.repo.CreateTask(ctx, toRecord(successor)); err != nil {
		s.cancelNotices(&successor)
		return model.Task{}, fmt.Errorf("reactivate task: %w", err)
	}
	s.logger.Info("task reactivated", map[string]any{
		"task_id":        successor.ID,
		"predecessor_id": original.ID,
		"attempt":        successor.ReactivationCount,
	})
	s.refreshLocked(ctx)
	return successor, nil
}

// Task fetches a single task by id.
func (s *Service) Task(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTaskLocked(ctx, id)
}

func (s *Service) getTaskLocked(ctx context.Context, id string) (model.Task, error) {
	rec, err := s.repo.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Task{}, model.NewFailure(model.CodeNotFound, "no task with id %q", id)
		}
		return model.Task{}, fmt.Errorf("load task: %w", err)
	}
	return fromRecord(rec), nil
}

func (s *Service) checkCapacityLocked(ctx context.Context, settings model.Settings) error {
	count, err := s.repo.CountTasksByStatus(ctx, string(model.StatusActive))
	if err != nil {
		return fmt.Errorf("count active tasks: %w", err)
	}
	if count >= settings.MaxActiveTasks {
		return model.NewFailure(model.CodeCapacityExceeded,
			"active task limit reached (%d of %d), finish something first", count, settings.MaxActiveTasks)
	}
	return nil
}

func (s *Service) scheduleNotices(task *model.Task, now time.Time) {
	if s.reminderLead > 0 {
		at := task.Deadline.Add(-s.reminderLead)
		if at.After(now) {
			token, err := s.notifier.ScheduleAt(at, notify.Payload{
				TaskID: task.ID,
				Title:  task.Title,
				Kind:   notify.KindReminder,
			})
			if err != nil {
				s.logger.Error("schedule reminder failed", map[string]any{"task_id": task.ID, "error": err.Error()})
			} else {
				task.ReminderToken = token
			}
		}
	}
	token, err := s.notifier.ScheduleAt(task.Deadline, notify.Payload{
		TaskID: task.ID,
		Title:  task.Title,
		Kind:   notify.KindBuffer,
	})
	if err != nil {
		s.logger.Error("schedule buffer notice failed", map[string]any{"task_id": task.ID, "error": err.Error()})
		return
	}
	task.BufferToken = token
}

// cancelNotices withdraws both notices, logging and swallowing failures.
// Tokens of notices that already fired are unknown to the engine, which is
// routine during sweeps.
func (s *Service) cancelNotices(task *model.Task) {
	for _, token := range []string{task.ReminderToken, task.BufferToken} {
		if token == "" {
			continue
		}
		if err := s.notifier.Cancel(token); err != nil {
			s.logger.Error("cancel notice failed", map[string]any{"task_id": task.ID, "token": token, "error": err.Error()})
		}
	}
	task.ReminderToken = ""
	task.BufferToken = ""
}
