package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"timebox/internal/jsonlog"
	"timebox/internal/model"
	"timebox/internal/notify"
	"timebox/internal/schedule"
	"timebox/internal/storage"
)

// Notifier schedules and withdraws timed notices. *notify.Engine satisfies
// it; tests substitute a recording fake. Failures from either method are
// logged and swallowed, never surfaced to the caller of a task operation.
type Notifier interface {
	ScheduleAt(at time.Time, p notify.Payload) (string, error)
	Cancel(token string) error
}

type noopNotifier struct{}

func (noopNotifier) ScheduleAt(time.Time, notify.Payload) (string, error) { return "", nil }
func (noopNotifier) Cancel(string) error                                  { return nil }

type Options struct {
	Notifier Notifier
	Logger   *jsonlog.Logger
	Now      func() time.Time
	// ReminderLead places a reminder notice that long before each deadline.
	// Zero or negative disables the pre-deadline reminder; the buffer notice
	// at the deadline itself is always scheduled.
	ReminderLead time.Duration
}

// Service owns every task state transition. All exported methods are safe
// for concurrent use; reads are served from caches refreshed after each
// mutation.
type Service struct {
	mu           sync.Mutex
	repo         storage.Repository
	notifier     Notifier
	logger       *jsonlog.Logger
	now          func() time.Time
	reminderLead time.Duration

	active   []model.Task
	archived []model.Task
}

// New prepares the service against the repository, seeding the settings row
// and a default 05:00-21:00 period on first run.
func New(ctx context.Context, repo storage.Repository, opts Options) (*Service, error) {
	if repo == nil {
		return nil, errors.New("lifecycle: repository is required")
	}
	s := &Service{
		repo:         repo,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		now:          opts.Now,
		reminderLead: opts.ReminderLead,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = jsonlog.Discard()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if err := s.seed(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.refreshLocked(ctx)
	s.mu.Unlock()
	return s, nil
}

func (s *Service) seed(ctx context.Context) error {
	if _, err := s.repo.GetSettings(ctx); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load settings: %w", err)
		}
		def := model.DefaultSettings()
		if err := s.repo.SaveSettings(ctx, storage.Settings{
			MaxActiveTasks: def.MaxActiveTasks,
			BufferMinutes:  def.BufferMinutes,
		}); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	periods, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("load periods: %w", err)
	}
	if len(periods) == 0 {
		def := schedule.DefaultPeriod()
		def.ID = uuid.NewString()
		def.CreatedAt = s.now()
		if err := s.repo.CreatePeriod(ctx, periodToRecord(def)); err != nil {
			return fmt.Errorf("seed default period: %w", err)
		}
	}
	return nil
}

func (s *Service) Now() time.Time {
	return s.now()
}

// Window reports whether task creation is currently allowed and under which
// period.
func (s *Service) Window(ctx context.Context) (schedule.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	periods, err := s.periodsLocked(ctx)
	if err != nil {
		return schedule.Window{}, err
	}
	return schedule.ResolveWindow(s.now(), periods), nil
}

func (s *Service) settingsLocked(ctx context.Context) (model.Settings, error) {
	rec, err := s.repo.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.DefaultSettings(), nil
		}
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return model.Settings{MaxActiveTasks: rec.MaxActiveTasks, BufferMinutes: rec.BufferMinutes}, nil
}

func (s *Service) periodsLocked(ctx context.Context) ([]model.TimePeriod, error) {
	recs, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load periods: %w", err)
	}
	out := make([]model.TimePeriod, 0, len(recs))
	for _, rec := range recs {
		out = append(out, periodFromRecord(rec))
	}
	return out, nil
}

func toRecord(t model.Task) storage.Task {
	return storage.Task{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Status:            string(t.Status),
		CreatedAt:         t.CreatedAt,
		Deadline:          t.Deadline,
		CompletedAt:       t.CompletedAt,
		ReactivationCount: t.ReactivationCount,
		PredecessorID:     t.PredecessorID,
		ReminderToken:     t.ReminderToken,
		BufferToken:       t.BufferToken,
	}
}

func fromRecord(rec storage.Task) model.Task {
	return model.Task{
		ID:                rec.ID,
		Title:             rec.Title,
		Description:       rec.Description,
		Status:            model.Status(rec.Status),
		CreatedAt:         rec.CreatedAt,
		Deadline:          rec.Deadline,
		CompletedAt:       rec.CompletedAt,
		ReactivationCount: rec.ReactivationCount,
		PredecessorID:     rec.PredecessorID,
		ReminderToken:     rec.ReminderToken,
		BufferToken:       rec.BufferToken,
	}
}

func periodToRecord(p model.TimePeriod) storage.TimePeriod {
	return storage.TimePeriod{
		ID:          p.ID,
		StartHour:   p.StartHour,
		StartMinute: p.StartMinute,
		EndHour:     p.EndHour,
		EndMinute:   p.EndMinute,
		MaxHours:    p.MaxHours,
		CreatedAt:   p.CreatedAt,
	}
}

func periodFromRecord(rec storage.TimePeriod) model.TimePeriod {
	return model.TimePeriod{
		ID:          rec.ID,
		StartHour:   rec.StartHour,
		StartMinute: rec.StartMinute,
		EndHour:     rec.EndHour,
		EndMinute:   rec.EndMinute,
		MaxHours:    rec.MaxHours,
		CreatedAt:   rec.CreatedAt,
	}
}
