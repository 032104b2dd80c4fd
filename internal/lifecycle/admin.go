package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"timebox/internal/model"
	"timebox/internal/schedule"
	"timebox/internal/storage"
)

// ErrLastPeriod guards against a configuration in which no task could ever
// be created again.
var ErrLastPeriod = errors.New("lifecycle: cannot delete the last time period")

func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, in model.Settings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.SaveSettings(ctx, storage.Settings{
		MaxActiveTasks: in.MaxActiveTasks,
		BufferMinutes:  in.BufferMinutes,
	}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings updated", map[string]any{
		"max_active_tasks": in.MaxActiveTasks,
		"buffer_minutes":   in.BufferMinutes,
	})
	return nil
}

func (s *Service) Periods(ctx context.Context) ([]model.TimePeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periodsLocked(ctx)
}

// AddPeriod inserts a new period after checking it against every existing
// one for overlap. Periods that merely touch are fine.
func (s *Service) AddPeriod(ctx context.Context, in model.TimePeriod) (model.TimePeriod, error) {
	if err := in.Validate(); err != nil {
		return model.TimePeriod{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.periodsLocked(ctx)
	if err != nil {
		return model.TimePeriod{}, err
	}
	if err := schedule.CheckOverlap(in, existing, ""); err != nil {
		return model.TimePeriod{}, err
	}

	in.ID = uuid.NewString()
	in.CreatedAt = s.now()
	if err := s.repo.CreatePeriod(ctx, periodToRecord(in)); err != nil {
		return model.TimePeriod{}, fmt.Errorf("create period: %w", err)
	}
	s.logger.Info("period added", map[string]any{"period_id": in.ID, "label": in.Label()})
	return in, nil
}

// UpdatePeriod revalidates overlap against every period except the one being
// changed.
func (s *Service) UpdatePeriod(ctx context.Context, in model.TimePeriod) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetPeriod(ctx, in.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.NewFailure(model.CodeNotFound, "no period with id %q", in.ID)
		}
		return fmt.Errorf("load period: %w", err)
	}
	existing, err := s.periodsLocked(ctx)
	if err != nil {
		return err
	}
	if err := schedule.CheckOverlap(in, existing, in.ID); err != nil {
		return err
	}
	if err := s.repo.UpdatePeriod(ctx, periodToRecord(in)); err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	s.logger.Info("period updated", map[string]any{"period_id": in.ID, "label": in.Label()})
	return nil
}

func (s *Service) DeletePeriod(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetPeriod(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.NewFailure(model.CodeNotFound, "no period with id %q", id)
		}
		return fmt.Errorf("load period: %w", err)
	}
	existing, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("load periods: %w", err)
	}
	if len(existing) <= 1 {
		return ErrLastPeriod
	}
	if err := s.repo.DeletePeriod(ctx, id); err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	s.logger.Info("period deleted", map[string]any{"period_id": id})
	return nil
}
