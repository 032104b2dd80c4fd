package update

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/lifecycle"
	"timebox/internal/notify"
	"timebox/internal/storage"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// newTestModel wires a model to a real service on a temp database, with the
// clock parked at 10:00 inside the default 05:00-21:00 period.
func newTestModel(t *testing.T) (Model, *testClock) {
	t.Helper()

	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "timebox.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)}
	svc, err := lifecycle.New(t.Context(), repo, lifecycle.Options{Now: clock.Now})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewModel(svc), clock
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func addTask(t *testing.T, m Model, title string) Model {
	t.Helper()
	m = press(t, m, "a", title, "enter")
	if m.TaskForm.Active {
		t.Fatalf("task form still open after submit, error: %q", m.TaskForm.Err)
	}
	return m
}

func TestViewSwitchingKeys(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "2")
	if m.CurrentView != ViewArchive {
		t.Fatalf("view = %s, want Archive", m.CurrentView)
	}
	if out := m.View(); !strings.Contains(out, "view: Archive") || !strings.Contains(out, "archive:") {
		t.Fatalf("archive view missing markers:\n%s", out)
	}

	m = press(t, m, "3")
	if out := m.View(); !strings.Contains(out, "periods:") {
		t.Fatalf("periods view missing marker:\n%s", out)
	}

	m = press(t, m, "4")
	if out := m.View(); !strings.Contains(out, "stats:") {
		t.Fatalf("stats view missing marker:\n%s", out)
	}

	m = press(t, m, "1")
	if m.CurrentView != ViewActive {
		t.Fatalf("view = %s, want Active", m.CurrentView)
	}
}

func TestAddTaskThroughForm(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "a")
	if !m.TaskForm.Active {
		t.Fatal("task form did not open")
	}
	if out := m.View(); !strings.Contains(out, "task-form (add)") {
		t.Fatalf("form not rendered:\n%s", out)
	}

	m = press(t, m, "pay rent", "enter")
	if m.TaskForm.Active {
		t.Fatalf("form still open, error: %q", m.TaskForm.Err)
	}
	if !strings.Contains(m.Status.Text, "added: pay rent due 16:00") {
		t.Fatalf("status = %q, want full-window deadline 16:00", m.Status.Text)
	}
	out := m.View()
	if !strings.Contains(out, "pay rent") {
		t.Fatalf("active view missing task:\n%s", out)
	}
	if !strings.Contains(out, "capacity: 1 of 3 slots used") {
		t.Fatalf("capacity line wrong:\n%s", out)
	}
}

func TestAddTaskCustomDeadlineTooFar(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "a", "pay rent", "tab", "tab", "19:00", "enter")
	if !m.TaskForm.Active {
		t.Fatal("form should stay open on a rejected deadline")
	}
	if !strings.Contains(m.TaskForm.Err, "window limit") {
		t.Fatalf("form error = %q, want window limit rejection", m.TaskForm.Err)
	}
}

func TestAddTaskRejectedOutsideWindow(t *testing.T) {
	m, clock := newTestModel(t)
	clock.Set(time.Date(2026, 2, 9, 22, 0, 0, 0, time.UTC))

	m = press(t, m, "a", "late idea", "enter")
	if !m.TaskForm.Active {
		t.Fatal("form should stay open when the window is closed")
	}
	if !strings.Contains(m.TaskForm.Err, "no task period is open at 22:00") {
		t.Fatalf("form error = %q", m.TaskForm.Err)
	}
}

func TestCompleteSelectedTask(t *testing.T) {
	m, _ := newTestModel(t)
	m = addTask(t, m, "pay rent")

	m = press(t, m, "enter")
	if !strings.Contains(m.Status.Text, "completed: pay rent") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if out := m.View(); !strings.Contains(out, "(nothing active)") {
		t.Fatalf("active view should be empty:\n%s", out)
	}

	m = press(t, m, "2")
	out := m.View()
	if !strings.Contains(out, "Completed:") || !strings.Contains(out, "pay rent") {
		t.Fatalf("archive missing completed task:\n%s", out)
	}
}

func TestCompleteAfterBufferRejected(t *testing.T) {
	m, clock := newTestModel(t)
	m = addTask(t, m, "pay rent")

	clock.Set(time.Date(2026, 2, 9, 16, 31, 0, 0, time.UTC))
	m = press(t, m, "enter")
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %q", m.Status.Text)
	}
	if !strings.Contains(m.Status.Text, "completion buffer") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if len(m.ActiveTasks) != 1 {
		t.Fatalf("refused completion must not move the task, active = %d", len(m.ActiveTasks))
	}
}

func TestEditTaskTitle(t *testing.T) {
	m, _ := newTestModel(t)
	m = addTask(t, m, "pay rent")

	m = press(t, m, "e")
	if out := m.View(); !strings.Contains(out, "task-form (edit)") {
		t.Fatalf("edit form not rendered:\n%s", out)
	}
	m = press(t, m, " today", "enter")
	if m.TaskForm.Active {
		t.Fatalf("form still open, error: %q", m.TaskForm.Err)
	}
	if !strings.Contains(m.Status.Text, "updated: pay rent today") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if out := m.View(); !strings.Contains(out, "pay rent today") {
		t.Fatalf("active view missing new title:\n%s", out)
	}
}

func TestDeleteTaskKey(t *testing.T) {
	m, _ := newTestModel(t)
	m = addTask(t, m, "pay rent")

	m = press(t, m, "x")
	if !strings.Contains(m.Status.Text, "deleted: pay rent") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if len(m.ActiveTasks) != 0 {
		t.Fatalf("active tasks = %d, want 0", len(m.ActiveTasks))
	}
}

func TestSweepTickExpiresOverdueTask(t *testing.T) {
	m, clock := newTestModel(t)
	m = addTask(t, m, "ship report")

	clock.Set(time.Date(2026, 2, 9, 16, 31, 0, 0, time.UTC))
	updated, cmd := m.Update(SweepTickMsg(clock.Now()))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("sweep tick must reschedule itself")
	}
	if !strings.Contains(m.Status.Text, "1 task(s) expired unfinished") {
		t.Fatalf("status = %q", m.Status.Text)
	}

	m = press(t, m, "2")
	out := m.View()
	if !strings.Contains(out, "Expired:") || !strings.Contains(out, "ship report") {
		t.Fatalf("archive missing expired task:\n%s", out)
	}
}

func TestManualSweepKey(t *testing.T) {
	m, _ := newTestModel(t)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'S'}})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("S must produce a sweep command")
	}
	if !m.SweepRunning {
		t.Fatal("SweepRunning should be set while the sweep is pending")
	}

	updated, _ = m.Update(SweepNowMsg{})
	m = updated.(Model)
	if m.SweepRunning {
		t.Fatal("SweepRunning should clear after the sweep")
	}
}

func TestReactivateFromArchive(t *testing.T) {
	m, clock := newTestModel(t)
	m = addTask(t, m, "ship report")

	clock.Set(time.Date(2026, 2, 9, 16, 31, 0, 0, time.UTC))
	updated, _ := m.Update(SweepTickMsg(clock.Now()))
	m = updated.(Model)

	m = press(t, m, "2", "r")
	if !strings.Contains(m.Status.Text, "reactivated: ship report (attempt 2) due 22:31") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if m.CurrentView != ViewActive {
		t.Fatalf("view = %s, want Active after reactivate", m.CurrentView)
	}
	if out := m.View(); !strings.Contains(out, "attempt:2") {
		t.Fatalf("active view missing attempt marker:\n%s", out)
	}
}

func TestReactivateCompletedTaskRejected(t *testing.T) {
	m, _ := newTestModel(t)
	m = addTask(t, m, "pay rent")
	m = press(t, m, "enter", "2", "r")

	if !m.Status.IsError {
		t.Fatalf("expected error status, got %q", m.Status.Text)
	}
	if !strings.Contains(m.Status.Text, "not expired") {
		t.Fatalf("status = %q", m.Status.Text)
	}
}

func TestPaletteAddCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "/")
	if !m.Palette.Active {
		t.Fatal("palette did not open")
	}
	if out := m.View(); !strings.Contains(out, "command: /") {
		t.Fatalf("palette not rendered:\n%s", out)
	}

	m = press(t, m, "add pay rent by:14:00", "enter")
	if m.Palette.Active {
		t.Fatal("palette should close after execute")
	}
	if !strings.Contains(m.Status.Text, "added: pay rent due 14:00") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if len(m.ActiveTasks) != 1 {
		t.Fatalf("active tasks = %d, want 1", len(m.ActiveTasks))
	}
}

func TestPaletteDoneSelected(t *testing.T) {
	m, _ := newTestModel(t)
	m = addTask(t, m, "pay rent")

	m = press(t, m, "/", "done selected", "enter")
	if !strings.Contains(m.Status.Text, "completed: pay rent") {
		t.Fatalf("status = %q", m.Status.Text)
	}
}

func TestPaletteStatsCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "/", "stats 7d", "enter")
	if !strings.Contains(m.Status.Text, "last 7d:") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if m.CurrentView != ViewStats {
		t.Fatalf("view = %s, want Stats", m.CurrentView)
	}
}

func TestPaletteUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "/", "frobnicate", "enter")
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %q", m.Status.Text)
	}
	if !strings.Contains(m.Status.Text, "unsupported command") {
		t.Fatalf("status = %q", m.Status.Text)
	}
}

func TestWindowLineReflectsClock(t *testing.T) {
	m, clock := newTestModel(t)

	if out := m.View(); !strings.Contains(out, "window: OPEN 05:00-21:00 (max 6h)") {
		t.Fatalf("window line wrong:\n%s", out)
	}

	clock.Set(time.Date(2026, 2, 9, 22, 0, 0, 0, time.UTC))
	updated, _ := m.Update(TickMsg(clock.Now()))
	m = updated.(Model)
	if out := m.View(); !strings.Contains(out, "window: CLOSED (no task period is open at 22:00)") {
		t.Fatalf("window line wrong:\n%s", out)
	}
}

func TestPeriodEditorAddsPeriod(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "3", "n")
	if out := m.View(); !strings.Contains(out, "period-editor (add)") {
		t.Fatalf("editor not rendered:\n%s", out)
	}

	m = press(t, m, "22:00", "tab", "23:00", "enter")
	if m.PeriodEditor.Active {
		t.Fatalf("editor still open, error: %q", m.PeriodEditor.Err)
	}
	if !strings.Contains(m.Status.Text, "period added: 22:00-23:00 (max 6h)") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if out := m.View(); !strings.Contains(out, "22:00-23:00") {
		t.Fatalf("periods view missing new period:\n%s", out)
	}
}

func TestPeriodEditorRejectsOverlap(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "3", "n", "06:00", "tab", "08:00", "enter")
	if !m.PeriodEditor.Active {
		t.Fatal("editor should stay open on overlap")
	}
	if !strings.Contains(m.PeriodEditor.Err, "overlaps") {
		t.Fatalf("editor error = %q", m.PeriodEditor.Err)
	}
}

func TestDeleteLastPeriodRefused(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "3", "x")
	if !m.Status.IsError {
		t.Fatalf("expected error status, got %q", m.Status.Text)
	}
	if !strings.Contains(m.Status.Text, "cannot delete the last time period") {
		t.Fatalf("status = %q", m.Status.Text)
	}
}

func TestSettingsEditorSaves(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "3", "s")
	if out := m.View(); !strings.Contains(out, "settings-editor") {
		t.Fatalf("editor not rendered:\n%s", out)
	}

	m = press(t, m, "backspace", "5", "enter")
	if m.SettingsEditor.Active {
		t.Fatalf("editor still open, error: %q", m.SettingsEditor.Err)
	}
	if !strings.Contains(m.Status.Text, "settings saved: max-active 5, buffer 30m") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if m.Settings.MaxActiveTasks != 5 {
		t.Fatalf("MaxActiveTasks = %d, want 5", m.Settings.MaxActiveTasks)
	}
}

func TestStatsViewRendersCounts(t *testing.T) {
	m, clock := newTestModel(t)

	m = addTask(t, m, "pay rent")
	clock.Set(time.Date(2026, 2, 9, 10, 5, 0, 0, time.UTC))
	m = press(t, m, "enter")

	clock.Set(time.Date(2026, 2, 9, 10, 6, 0, 0, time.UTC))
	m = addTask(t, m, "ship report")
	clock.Set(time.Date(2026, 2, 9, 16, 40, 0, 0, time.UTC))
	updated, _ := m.Update(SweepTickMsg(clock.Now()))
	m = updated.(Model)

	m = press(t, m, "4")
	out := m.View()
	if !strings.Contains(out, "finished: 1") || !strings.Contains(out, "unfinished: 1") {
		t.Fatalf("stats counts wrong:\n%s", out)
	}
	if !strings.Contains(out, "50%") {
		t.Fatalf("completion rate missing:\n%s", out)
	}
}

func TestStatsRangeKeys(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "4", "+")
	if m.StatsDays != 14 {
		t.Fatalf("StatsDays = %d, want 14", m.StatsDays)
	}
	m = press(t, m, "-", "-")
	if m.StatsDays != 7 {
		t.Fatalf("StatsDays = %d, want 7 (floor)", m.StatsDays)
	}
}

func TestNoticeMsgUpdatesLog(t *testing.T) {
	m, clock := newTestModel(t)

	ev := notify.Event{
		Token:     "tok-1",
		TaskID:    "task-1",
		Title:     "pay rent",
		Kind:      notify.KindReminder,
		TriggerAt: clock.Now(),
	}
	updated, _ := m.Update(NoticeMsg{Event: ev})
	m = updated.(Model)

	if !strings.Contains(m.Status.Text, "deadline approaching: pay rent") {
		t.Fatalf("status = %q", m.Status.Text)
	}
	if out := m.View(); !strings.Contains(out, "notice: [REMINDER]") {
		t.Fatalf("notice area missing:\n%s", out)
	}
	if len(m.NoticeLog) != 1 {
		t.Fatalf("notice log = %d entries, want 1", len(m.NoticeLog))
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, "?")
	if out := m.View(); !strings.Contains(out, "help:") {
		t.Fatalf("help panel missing:\n%s", out)
	}
	m = press(t, m, "?")
	if out := m.View(); strings.Contains(out, "help:") {
		t.Fatalf("help panel should hide:\n%s", out)
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("quit must return a command")
	}
	if !m.Quitting {
		t.Fatal("Quitting not set")
	}
	if out := m.View(); !strings.Contains(out, "bye") {
		t.Fatalf("quit view = %q", out)
	}
}
