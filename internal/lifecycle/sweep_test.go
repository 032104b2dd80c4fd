package lifecycle

import (
	"testing"
	"time"

	"timebox/internal/model"
)

func TestSweepExpiresOnlyPastBufferTasks(t *testing.T) {
	svc, notifier, clk := newService(t, time.Date(2026, 2, 9, 6, 0, 0, 0, time.UTC))

	early := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 9, 11, 0, 0, 0, time.UTC)
	doomed, err := svc.Create(t.Context(), CreateInput{Title: "misses deadline", Deadline: &early})
	if err != nil {
		t.Fatalf("create doomed task: %v", err)
	}
	survivor, err := svc.Create(t.Context(), CreateInput{Title: "still in time", Deadline: &late})
	if err != nil {
		t.Fatalf("create surviving task: %v", err)
	}

	// 08:31 is past doomed's 30 minute buffer but well before survivor's
	// deadline.
	clk.Set(time.Date(2026, 2, 9, 8, 31, 0, 0, time.UTC))
	expired, err := svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired task, got %d", expired)
	}

	stored, err := svc.Task(t.Context(), doomed.ID)
	if err != nil {
		t.Fatalf("reload doomed task: %v", err)
	}
	if stored.Status != model.StatusExpiredUnfinished {
		t.Fatalf("expected expired_unfinished, got %s", stored.Status)
	}
	if stored.ReminderToken != "" || stored.BufferToken != "" {
		t.Fatalf("expected tokens cleared on expiry, got %q / %q", stored.ReminderToken, stored.BufferToken)
	}

	kept, err := svc.Task(t.Context(), survivor.ID)
	if err != nil {
		t.Fatalf("reload survivor: %v", err)
	}
	if kept.Status != model.StatusActive {
		t.Fatalf("expected survivor still active, got %s", kept.Status)
	}

	// Only the survivor's notices remain pending.
	if notifier.pendingCount() != 2 {
		t.Fatalf("expected survivor's 2 notices pending, got %d", notifier.pendingCount())
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	svc, _, clk := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	task, err := svc.Create(t.Context(), CreateInput{Title: "expires once"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	clk.Set(task.Deadline.Add(31 * time.Minute))
	first, err := svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first sweep to expire 1 task, got %d", first)
	}
	second, err := svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second sweep to be a no-op, got %d", second)
	}
}

func TestSweepLeavesBufferZoneTasksAlone(t *testing.T) {
	svc, _, clk := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	task, err := svc.Create(t.Context(), CreateInput{Title: "grace period"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	clk.Set(task.Deadline.Add(15 * time.Minute))
	expired, err := svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected buffer-zone task untouched, got %d expired", expired)
	}

	// The exact buffer boundary still counts as inside.
	clk.Set(task.Deadline.Add(30 * time.Minute))
	expired, err = svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("boundary sweep: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected boundary instant untouched, got %d expired", expired)
	}
}

func TestSweepSurvivesAlreadyFiredNotices(t *testing.T) {
	svc, notifier, clk := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	task, err := svc.Create(t.Context(), CreateInput{Title: "notices fired"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	// Simulate both notices having fired already: their tokens are no longer
	// known, so the sweep's cancellations fail and must be swallowed.
	if err := notifier.Cancel(task.ReminderToken); err != nil {
		t.Fatalf("drain reminder token: %v", err)
	}
	if err := notifier.Cancel(task.BufferToken); err != nil {
		t.Fatalf("drain buffer token: %v", err)
	}

	clk.Set(task.Deadline.Add(31 * time.Minute))
	expired, err := svc.Sweep(t.Context())
	if err != nil {
		t.Fatalf("sweep with stale tokens: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected task expired despite stale tokens, got %d", expired)
	}
}

func TestSweepUpdatesCaches(t *testing.T) {
	svc, _, clk := newService(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC))

	task, err := svc.Create(t.Context(), CreateInput{Title: "cache mover"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if len(svc.Active()) != 1 || len(svc.Archived()) != 0 {
		t.Fatalf("expected 1 active / 0 archived before sweep")
	}

	clk.Set(task.Deadline.Add(31 * time.Minute))
	if _, err := svc.Sweep(t.Context()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(svc.Active()) != 0 || len(svc.Archived()) != 1 {
		t.Fatalf("expected task moved to archive, got %d active / %d archived",
			len(svc.Active()), len(svc.Archived()))
	}
}
