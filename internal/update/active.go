package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/lifecycle"
	"timebox/internal/views"
)

func (m Model) handleActiveKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		if m.ActiveCursor < len(m.ActiveTasks)-1 {
			m.ActiveCursor++
		}
	case "k", "up":
		if m.ActiveCursor > 0 {
			m.ActiveCursor--
		}
	case "a":
		m.openTaskForm("")
	case "e":
		if t, ok := m.selectedActive(); ok {
			m.openTaskForm(t.ID)
		}
	case "enter":
		if t, ok := m.selectedActive(); ok {
			m.completeTask(t.ID)
		}
	case "x":
		if t, ok := m.selectedActive(); ok {
			m.deleteTask(t.ID)
		}
	case "y":
		if t, ok := m.selectedActive(); ok {
			m.yankTaskID(t.ID)
		}
	}
	m.syncComponents()
	return m
}

func (m *Model) completeTask(id string) {
	task, err := m.Service.Complete(context.Background(), id)
	if err != nil {
		m.failOp(err)
		return
	}
	m.Status = StatusBar{Text: fmt.Sprintf("completed: %s", task.Title), IsError: false}
	m.notify("Completed", task.Title, "info")
	m.refreshFromService()
}

func (m *Model) deleteTask(id string) {
	task, ok := m.taskByID(id)
	if err := m.Service.Delete(context.Background(), id); err != nil {
		m.failOp(err)
		return
	}
	label := shortID(id)
	if ok {
		label = task.Title
	}
	m.Status = StatusBar{Text: fmt.Sprintf("deleted: %s", label), IsError: false}
	m.refreshFromService()
}

func (m *Model) yankTaskID(id string) {
	if err := clipboard.WriteAll(id); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("clipboard unavailable: %v", err), IsError: true}
		return
	}
	m.Status = StatusBar{Text: fmt.Sprintf("task id copied: %s", shortID(id)), IsError: false}
}

func (m *Model) openTaskForm(editID string) {
	m.TaskForm = TaskFormState{Active: true, EditID: editID}
	m.titleInput.SetValue("")
	m.descArea.SetValue("")
	m.deadlineInput.SetValue("")
	if editID == "" {
		m.deadlineInput.Placeholder = "HH:MM (empty = full window)"
	} else {
		m.deadlineInput.Placeholder = "HH:MM (empty = keep deadline)"
		if t, ok := m.taskByID(editID); ok {
			m.titleInput.SetValue(t.Title)
			m.descArea.SetValue(t.Description)
		}
	}
	m.focusTaskFormField()
}

func (m Model) handleTaskFormKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.TaskForm = TaskFormState{}
		m.Status = StatusBar{Text: "task form closed", IsError: false}
		return m
	case "tab":
		m.TaskForm.Field = (m.TaskForm.Field + 1) % 3
		m.focusTaskFormField()
		return m
	case "enter":
		if m.TaskForm.Field == 1 {
			m.descArea.SetValue(m.descArea.Value() + "\n")
			return m
		}
		return m.submitTaskForm()
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		switch m.TaskForm.Field {
		case 0:
			m.titleInput.SetValue(m.titleInput.Value() + text)
		case 1:
			m.descArea.SetValue(m.descArea.Value() + text)
		case 2:
			m.deadlineInput.SetValue(m.deadlineInput.Value() + text)
		}
	case tea.KeyBackspace:
		switch m.TaskForm.Field {
		case 0:
			m.titleInput.SetValue(trimLast(m.titleInput.Value()))
		case 1:
			m.descArea.SetValue(trimLast(m.descArea.Value()))
		case 2:
			m.deadlineInput.SetValue(trimLast(m.deadlineInput.Value()))
		}
	}
	return m
}

func (m Model) submitTaskForm() Model {
	title := strings.TrimSpace(m.titleInput.Value())
	desc := m.descArea.Value()

	var deadline *time.Time
	if raw := strings.TrimSpace(m.deadlineInput.Value()); raw != "" {
		at, err := clockToday(m.now(), raw)
		if err != nil {
			m.TaskForm.Err = err.Error()
			return m
		}
		deadline = &at
	}

	ctx := context.Background()
	if m.TaskForm.EditID != "" {
		_, err := m.Service.Edit(ctx, m.TaskForm.EditID, lifecycle.EditInput{
			Title:       &title,
			Description: &desc,
			Deadline:    deadline,
		})
		if err != nil {
			m.TaskForm.Err = err.Error()
			return m
		}
		m.Status = StatusBar{Text: fmt.Sprintf("updated: %s", title), IsError: false}
	} else {
		task, err := m.Service.Create(ctx, lifecycle.CreateInput{
			Title:       title,
			Description: desc,
			Deadline:    deadline,
		})
		if err != nil {
			m.TaskForm.Err = err.Error()
			return m
		}
		m.Status = StatusBar{Text: fmt.Sprintf("added: %s due %s", task.Title, task.Deadline.Format("15:04")), IsError: false}
		m.notify("Added", task.Title, "info")
	}
	m.TaskForm = TaskFormState{}
	m.refreshFromService()
	return m
}

func (m *Model) focusTaskFormField() {
	m.titleInput.Blur()
	m.descArea.Blur()
	m.deadlineInput.Blur()
	switch m.TaskForm.Field {
	case 0:
		m.titleInput.Focus()
	case 1:
		m.descArea.Focus()
	case 2:
		m.deadlineInput.Focus()
	}
}

func (m Model) renderActiveView() string {
	now := m.now()
	buffer := m.Settings.Buffer()

	items := make([]views.ActiveTaskData, 0, len(m.ActiveTasks))
	for _, t := range m.ActiveTasks {
		total := t.Deadline.Sub(t.CreatedAt)
		items = append(items, views.ActiveTaskData{
			ID:        t.ID,
			Title:     t.Title,
			Deadline:  t.Deadline.Format("15:04"),
			Countdown: formatRemaining(t.Remaining(now)),
			InBuffer:  t.InBufferZone(now, buffer),
			Critical:  total > 0 && t.Remaining(now) < total/4,
			Attempt:   t.ReactivationCount,
		})
	}

	selected := ""
	if t, ok := m.selectedActive(); ok {
		selected = t.ID
	}
	return views.RenderActivePanel(views.ActivePanelData{
		ListView:     m.activeList.View(),
		Items:        items,
		SelectedID:   selected,
		CapacityLine: fmt.Sprintf("capacity: %d of %d slots used", len(m.ActiveTasks), m.Settings.MaxActiveTasks),
	})
}

func (m Model) renderTaskDetailPane() string {
	t, ok := m.detailTask()
	if !ok {
		return "detail:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("detail:\n")
	b.WriteString(fmt.Sprintf("id: %s\n", shortID(t.ID)))
	b.WriteString(fmt.Sprintf("status: %s\n", t.Status))
	b.WriteString(fmt.Sprintf("created: %s\n", t.CreatedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("deadline: %s\n", t.Deadline.Format("2006-01-02 15:04")))
	if t.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("finished: %s\n", t.CompletedAt.Format("2006-01-02 15:04")))
	}
	b.WriteString(fmt.Sprintf("attempt: %d\n", t.ReactivationCount+1))
	if t.PredecessorID != "" {
		b.WriteString(fmt.Sprintf("previous: %s\n", shortID(t.PredecessorID)))
	}
	b.WriteString(m.detailViewport.View())
	return strings.TrimSpace(b.String())
}

func (m Model) renderTaskFormIfVisible() string {
	if !m.TaskForm.Active {
		return ""
	}
	mode := "add"
	if m.TaskForm.EditID != "" {
		mode = "edit"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("task-form (%s):\n", mode))
	b.WriteString("keys: [tab] field [enter] save [esc] close\n")
	b.WriteString(m.titleInput.View() + "\n")
	b.WriteString(m.descArea.View() + "\n")
	b.WriteString(m.deadlineInput.View() + "\n")
	if m.TaskForm.Err != "" {
		b.WriteString("error: " + m.TaskForm.Err + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
