package lifecycle

import (
	"context"

	"timebox/internal/model"
	"timebox/internal/storage"
)

// refreshLocked reloads the task caches. Failures leave the previous caches
// in place and are only logged; the database row, not the cache, is the
// source of truth for every transition.
func (s *Service) refreshLocked(ctx context.Context) {
	records, err := s.repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		s.logger.Error("refresh task cache failed", map[string]any{"error": err.Error()})
		return
	}
	active := make([]model.Task, 0, len(records))
	archived := make([]model.Task, 0, len(records))
	for _, rec := range records {
		task := fromRecord(rec)
		if task.Status == model.StatusActive {
			active = append(active, task)
		} else {
			archived = append(archived, task)
		}
	}
	s.active = active
	s.archived = archived
}

// Active returns the cached active tasks, newest first.
func (s *Service) Active() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.active))
	copy(out, s.active)
	return out
}

// Archived returns the cached completed and expired tasks, newest first.
func (s *Service) Archived() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.archived))
	copy(out, s.archived)
	return out
}
