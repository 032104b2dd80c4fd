package lifecycle

import (
	"context"
	"fmt"

	"timebox/internal/model"
	"timebox/internal/storage"
)

// Sweep expires every active task whose deadline plus buffer has elapsed and
// returns how many were expired. Running it twice in a row is harmless: the
// second pass finds nothing to do. A failure on one task is logged and does
// not stop the rest of the pass.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	settings, err := s.settingsLocked(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.repo.ListTasks(ctx, storage.TaskListFilter{Status: string(model.StatusActive)})
	if err != nil {
		return 0, fmt.Errorf("sweep: list active tasks: %w", err)
	}

	expired := 0
	for _, rec := range records {
		task := fromRecord(rec)
		if !task.PastBuffer(now, settings.Buffer()) {
			continue
		}
		s.cancelNotices(&task)
		task.Status = model.StatusExpiredUnfinished
		if err := s.repo.UpdateTask(ctx, toRecord(task)); err != nil {
			s.logger.Error("sweep: expire task failed", map[string]any{"task_id": task.ID, "error": err.Error()})
			continue
		}
		expired++
		s.logger.Info("task expired unfinished", map[string]any{"task_id": task.ID, "title": task.Title})
	}

	s.refreshLocked(ctx)
	return expired, nil
}
