package lifecycle

import (
	"errors"
	"testing"
	"time"

	"timebox/internal/model"
)

func TestUpdateSettingsRoundTrip(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	if err := svc.UpdateSettings(t.Context(), model.Settings{MaxActiveTasks: 5, BufferMinutes: 10}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	settings, err := svc.Settings(t.Context())
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if settings.MaxActiveTasks != 5 || settings.BufferMinutes != 10 {
		t.Fatalf("unexpected settings after update: %+v", settings)
	}
}

func TestUpdateSettingsValidates(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	if err := svc.UpdateSettings(t.Context(), model.Settings{MaxActiveTasks: 0, BufferMinutes: 30}); err == nil {
		t.Fatalf("expected rejection of zero capacity")
	}
	if err := svc.UpdateSettings(t.Context(), model.Settings{MaxActiveTasks: 2, BufferMinutes: -1}); err == nil {
		t.Fatalf("expected rejection of negative buffer")
	}
	if err := svc.UpdateSettings(t.Context(), model.Settings{MaxActiveTasks: 1, BufferMinutes: 0}); err != nil {
		t.Fatalf("expected zero buffer accepted: %v", err)
	}
}

func TestBufferSettingAffectsCompletion(t *testing.T) {
	svc, _, clk := newService(t, time.Date(2026, 2, 9, 6, 0, 0, 0, time.UTC))
	ctx := t.Context()

	if err := svc.UpdateSettings(ctx, model.Settings{MaxActiveTasks: 3, BufferMinutes: 0}); err != nil {
		t.Fatalf("disable buffer: %v", err)
	}
	deadline := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, CreateInput{Title: "no grace", Deadline: &deadline})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	clk.Set(deadline.Add(time.Second))
	if _, err := svc.Complete(ctx, task.ID); !model.IsFailure(err, model.CodeAlreadyExpired) {
		t.Fatalf("expected already_expired one second past deadline with zero buffer, got %v", err)
	}
}

func TestAddPeriodAcceptsAdjacent(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	// The seeded period ends 21:00; one starting exactly there is fine.
	added, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 21, EndHour: 23, MaxHours: 2})
	if err != nil {
		t.Fatalf("add adjacent period: %v", err)
	}
	if added.ID == "" || added.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at assigned, got %+v", added)
	}

	periods, err := svc.Periods(t.Context())
	if err != nil {
		t.Fatalf("list periods: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
}

func TestAddPeriodRejectsOverlap(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	_, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 20, EndHour: 23, MaxHours: 2})
	if !model.IsFailure(err, model.CodeOverlappingPeriod) {
		t.Fatalf("expected overlapping_period failure, got %v", err)
	}
}

func TestAddPeriodValidatesFields(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	if _, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 24, EndHour: 2, MaxHours: 1}); err == nil {
		t.Fatalf("expected rejection of out-of-range start hour")
	}
	if _, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 22, EndHour: 23, MaxHours: 0}); err == nil {
		t.Fatalf("expected rejection of zero max hours")
	}
}

func TestUpdatePeriodExcludesItselfFromOverlap(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	periods, err := svc.Periods(t.Context())
	if err != nil {
		t.Fatalf("list periods: %v", err)
	}
	seeded := periods[0]

	// Shrinking the seeded period collides only with itself, which must not
	// count.
	seeded.EndHour = 20
	if err := svc.UpdatePeriod(t.Context(), seeded); err != nil {
		t.Fatalf("shrink period: %v", err)
	}

	updated, err := svc.Periods(t.Context())
	if err != nil {
		t.Fatalf("reload periods: %v", err)
	}
	if updated[0].Label() != "05:00-20:00" {
		t.Fatalf("expected 05:00-20:00 after update, got %s", updated[0].Label())
	}
}

func TestUpdatePeriodRejectsCollision(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	evening, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 21, EndHour: 23, MaxHours: 2})
	if err != nil {
		t.Fatalf("add evening period: %v", err)
	}

	evening.StartHour = 20
	if err := svc.UpdatePeriod(t.Context(), evening); !model.IsFailure(err, model.CodeOverlappingPeriod) {
		t.Fatalf("expected overlapping_period failure, got %v", err)
	}
}

func TestUpdatePeriodUnknownID(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	if err := svc.UpdatePeriod(t.Context(), model.TimePeriod{ID: "missing", StartHour: 1, EndHour: 2, MaxHours: 1}); !model.IsFailure(err, model.CodeNotFound) {
		t.Fatalf("expected not_found failure, got %v", err)
	}
}

func TestDeleteLastPeriodRefused(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	periods, err := svc.Periods(t.Context())
	if err != nil {
		t.Fatalf("list periods: %v", err)
	}
	if err := svc.DeletePeriod(t.Context(), periods[0].ID); !errors.Is(err, ErrLastPeriod) {
		t.Fatalf("expected ErrLastPeriod, got %v", err)
	}

	extra, err := svc.AddPeriod(t.Context(), model.TimePeriod{StartHour: 21, EndHour: 23, MaxHours: 2})
	if err != nil {
		t.Fatalf("add second period: %v", err)
	}
	if err := svc.DeletePeriod(t.Context(), extra.ID); err != nil {
		t.Fatalf("delete one of two periods: %v", err)
	}
	if err := svc.DeletePeriod(t.Context(), periods[0].ID); !errors.Is(err, ErrLastPeriod) {
		t.Fatalf("expected ErrLastPeriod for the survivor, got %v", err)
	}
}

func TestDeletePeriodUnknownID(t *testing.T) {
	svc, _, _ := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	if err := svc.DeletePeriod(t.Context(), "missing"); !model.IsFailure(err, model.CodeNotFound) {
		t.Fatalf("expected not_found failure, got %v", err)
	}
}

func TestNewPeriodGovernsCreation(t *testing.T) {
	svc, _, clk := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))
	ctx := t.Context()

	if _, err := svc.AddPeriod(ctx, model.TimePeriod{StartHour: 22, EndHour: 23, MaxHours: 1}); err != nil {
		t.Fatalf("add late period: %v", err)
	}

	clk.Set(time.Date(2026, 2, 9, 22, 30, 0, 0, time.UTC))
	task, err := svc.Create(ctx, CreateInput{Title: "late entry"})
	if err != nil {
		t.Fatalf("create in late period: %v", err)
	}
	if !task.Deadline.Equal(time.Date(2026, 2, 9, 23, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected 1h deadline from late period, got %s", task.Deadline)
	}
}
