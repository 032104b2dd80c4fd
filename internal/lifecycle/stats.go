package lifecycle

import (
	"context"
	"fmt"
	"time"

	"timebox/internal/model"
)

// Stats summarizes discipline over a creation-time range. TotalAttempts sums
// reactivation counts across tasks of every status, so a chain that finally
// completed still contributes its failed attempts.
type Stats struct {
	Finished       int
	Unfinished     int
	TotalAttempts  int
	CompletionRate float64
}

func (s *Service) Stats(ctx context.Context, start, end time.Time) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	finished, err := s.repo.CountTasksByStatusInRange(ctx, string(model.StatusCompleted), start, end)
	if err != nil {
		return Stats{}, fmt.Errorf("count finished tasks: %w", err)
	}
	unfinished, err := s.repo.CountTasksByStatusInRange(ctx, string(model.StatusExpiredUnfinished), start, end)
	if err != nil {
		return Stats{}, fmt.Errorf("count unfinished tasks: %w", err)
	}
	attempts, err := s.repo.SumReactivationsInRange(ctx, start, end)
	if err != nil {
		return Stats{}, fmt.Errorf("sum reactivations: %w", err)
	}

	out := Stats{Finished: finished, Unfinished: unfinished, TotalAttempts: attempts}
	if total := finished + unfinished; total > 0 {
		out.CompletionRate = float64(finished) / float64(total)
	}
	return out, nil
}

// StatsLastDays reports over the trailing N days ending now.
func (s *Service) StatsLastDays(ctx context.Context, days int) (Stats, error) {
	if days < 1 {
		days = 1
	}
	now := s.now()
	return s.Stats(ctx, now.AddDate(0, 0, -days), now)
}
