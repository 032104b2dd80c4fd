package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/views"
)

func (m Model) handleArchiveKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		if m.ArchiveCursor < len(m.ArchivedTasks)-1 {
			m.ArchiveCursor++
		}
	case "k", "up":
		if m.ArchiveCursor > 0 {
			m.ArchiveCursor--
		}
	case "r":
		if t, ok := m.selectedArchived(); ok {
			m.reactivateTask(t.ID)
		}
	case "x":
		if t, ok := m.selectedArchived(); ok {
			m.deleteTask(t.ID)
		}
	case "y":
		if t, ok := m.selectedArchived(); ok {
			m.yankTaskID(t.ID)
		}
	}
	m.syncComponents()
	return m
}

func (m *Model) reactivateTask(id string) {
	task, err := m.Service.Reactivate(context.Background(), id)
	if err != nil {
		m.failOp(err)
		return
	}
	m.Status = StatusBar{
		Text:    fmt.Sprintf("reactivated: %s (attempt %d) due %s", task.Title, task.ReactivationCount+1, task.Deadline.Format("15:04")),
		IsError: false,
	}
	m.notify("Reactivated", task.Title, "info")
	m.CurrentView = ViewActive
	m.refreshFromService()
}

func (m Model) renderArchiveView() string {
	items := make([]views.ArchiveTaskData, 0, len(m.ArchivedTasks))
	for _, t := range m.ArchivedTasks {
		finished := ""
		if t.CompletedAt != nil {
			finished = t.CompletedAt.Format("15:04")
		}
		items = append(items, views.ArchiveTaskData{
			ID:         t.ID,
			Title:      t.Title,
			Status:     string(t.Status),
			FinishedAt: finished,
			Attempt:    t.ReactivationCount,
		})
	}

	selected := ""
	if t, ok := m.selectedArchived(); ok {
		selected = t.ID
	}
	return views.RenderArchivePanel(views.ArchivePanelData{
		ListView:   m.archiveList.View(),
		Items:      items,
		SelectedID: selected,
	})
}
