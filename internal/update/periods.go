package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/model"
	"timebox/internal/schedule"
	"timebox/internal/views"
)

func (m Model) handlePeriodsKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		if m.PeriodCursor < len(m.Periods)-1 {
			m.PeriodCursor++
		}
	case "k", "up":
		if m.PeriodCursor > 0 {
			m.PeriodCursor--
		}
	case "n":
		m.openPeriodEditor("")
	case "e":
		if p, ok := m.selectedPeriod(); ok {
			m.openPeriodEditor(p.ID)
		}
	case "x":
		if p, ok := m.selectedPeriod(); ok {
			m.deletePeriod(p.ID)
		}
	case "s":
		m.openSettingsEditor()
	}
	m.syncComponents()
	return m
}

func (m *Model) openPeriodEditor(editID string) {
	m.PeriodEditor = PeriodEditorState{Active: true, EditID: editID}
	if editID == "" {
		m.PeriodEditor.HoursText = "6"
		return
	}
	if p, ok := m.periodByID(editID); ok {
		m.PeriodEditor.StartText = fmt.Sprintf("%02d:%02d", p.StartHour, p.StartMinute)
		m.PeriodEditor.EndText = fmt.Sprintf("%02d:%02d", p.EndHour, p.EndMinute)
		m.PeriodEditor.HoursText = strconv.Itoa(p.MaxHours)
	}
}

func (m Model) periodByID(id string) (model.TimePeriod, bool) {
	for _, p := range m.Periods {
		if p.ID == id {
			return p, true
		}
	}
	return model.TimePeriod{}, false
}

func (m Model) handlePeriodEditorKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.PeriodEditor = PeriodEditorState{}
		m.Status = StatusBar{Text: "period editor closed", IsError: false}
		return m
	case "tab":
		m.PeriodEditor.Field = (m.PeriodEditor.Field + 1) % 3
		return m
	case "enter":
		return m.submitPeriodEditor()
	}

	switch msg.Type {
	case tea.KeyRunes:
		text := string(msg.Runes)
		switch m.PeriodEditor.Field {
		case 0:
			m.PeriodEditor.StartText += text
		case 1:
			m.PeriodEditor.EndText += text
		case 2:
			m.PeriodEditor.HoursText += text
		}
	case tea.KeyBackspace:
		switch m.PeriodEditor.Field {
		case 0:
			m.PeriodEditor.StartText = trimLast(m.PeriodEditor.StartText)
		case 1:
			m.PeriodEditor.EndText = trimLast(m.PeriodEditor.EndText)
		case 2:
			m.PeriodEditor.HoursText = trimLast(m.PeriodEditor.HoursText)
		}
	}
	return m
}

func (m Model) submitPeriodEditor() Model {
	startH, startM, err := parseClockParts(m.PeriodEditor.StartText)
	if err != nil {
		m.PeriodEditor.Err = err.Error()
		return m
	}
	endH, endM, err := parseClockParts(m.PeriodEditor.EndText)
	if err != nil {
		m.PeriodEditor.Err = err.Error()
		return m
	}
	hours, err := strconv.Atoi(strings.TrimSpace(m.PeriodEditor.HoursText))
	if err != nil {
		m.PeriodEditor.Err = fmt.Sprintf("max-hours %q is not a number", m.PeriodEditor.HoursText)
		return m
	}

	period := model.TimePeriod{
		ID:          m.PeriodEditor.EditID,
		StartHour:   startH,
		StartMinute: startM,
		EndHour:     endH,
		EndMinute:   endM,
		MaxHours:    hours,
	}

	ctx := context.Background()
	if m.PeriodEditor.EditID == "" {
		created, err := m.Service.AddPeriod(ctx, period)
		if err != nil {
			m.PeriodEditor.Err = err.Error()
			return m
		}
		m.Status = StatusBar{Text: fmt.Sprintf("period added: %s (max %dh)", created.Label(), created.MaxHours), IsError: false}
	} else {
		if err := m.Service.UpdatePeriod(ctx, period); err != nil {
			m.PeriodEditor.Err = err.Error()
			return m
		}
		m.Status = StatusBar{Text: fmt.Sprintf("period updated: %s", period.Label()), IsError: false}
	}
	m.PeriodEditor = PeriodEditorState{}
	m.refreshFromService()
	return m
}

func (m *Model) deletePeriod(id string) {
	if err := m.Service.DeletePeriod(context.Background(), id); err != nil {
		m.failOp(err)
		return
	}
	m.Status = StatusBar{Text: "period deleted", IsError: false}
	m.refreshFromService()
}

func (m *Model) openSettingsEditor() {
	m.SettingsEditor = SettingsEditorState{
		Active:     true,
		MaxText:    strconv.Itoa(m.Settings.MaxActiveTasks),
		BufferText: strconv.Itoa(m.Settings.BufferMinutes),
	}
}

func (m Model) handleSettingsEditorKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.SettingsEditor = SettingsEditorState{}
		m.Status = StatusBar{Text: "settings editor closed", IsError: false}
		return m
	case "tab":
		m.SettingsEditor.Field = (m.SettingsEditor.Field + 1) % 2
		return m
	case "enter":
		return m.submitSettingsEditor()
	}

	switch msg.Type {
	case tea.KeyRunes:
		text := string(msg.Runes)
		if m.SettingsEditor.Field == 0 {
			m.SettingsEditor.MaxText += text
		} else {
			m.SettingsEditor.BufferText += text
		}
	case tea.KeyBackspace:
		if m.SettingsEditor.Field == 0 {
			m.SettingsEditor.MaxText = trimLast(m.SettingsEditor.MaxText)
		} else {
			m.SettingsEditor.BufferText = trimLast(m.SettingsEditor.BufferText)
		}
	}
	return m
}

func (m Model) submitSettingsEditor() Model {
	maxActive, err := strconv.Atoi(strings.TrimSpace(m.SettingsEditor.MaxText))
	if err != nil {
		m.SettingsEditor.Err = fmt.Sprintf("max-active %q is not a number", m.SettingsEditor.MaxText)
		return m
	}
	buffer, err := strconv.Atoi(strings.TrimSpace(m.SettingsEditor.BufferText))
	if err != nil {
		m.SettingsEditor.Err = fmt.Sprintf("buffer-minutes %q is not a number", m.SettingsEditor.BufferText)
		return m
	}

	in := model.Settings{MaxActiveTasks: maxActive, BufferMinutes: buffer}
	if err := m.Service.UpdateSettings(context.Background(), in); err != nil {
		m.SettingsEditor.Err = err.Error()
		return m
	}
	m.Status = StatusBar{Text: fmt.Sprintf("settings saved: max-active %d, buffer %dm", maxActive, buffer), IsError: false}
	m.SettingsEditor = SettingsEditorState{}
	m.refreshFromService()
	return m
}

func (m Model) renderPeriodsView() string {
	now := m.now()

	items := make([]views.PeriodRowData, 0, len(m.Periods))
	for _, p := range m.Periods {
		items = append(items, views.PeriodRowData{
			ID:       p.ID,
			Label:    p.Label(),
			MaxHours: p.MaxHours,
			Current:  schedule.ResolveWindow(now, []model.TimePeriod{p}).CanCreate,
		})
	}

	selected := ""
	if p, ok := m.selectedPeriod(); ok {
		selected = p.ID
	}
	return views.RenderPeriodsPanel(views.PeriodsPanelData{
		TableView:    m.periodsTable.View(),
		Items:        items,
		SelectedID:   selected,
		SettingsLine: fmt.Sprintf("limits: max-active %d, buffer %dm", m.Settings.MaxActiveTasks, m.Settings.BufferMinutes),
	})
}

func (m Model) renderPeriodEditorIfVisible() string {
	if !m.PeriodEditor.Active {
		return ""
	}
	mode := "add"
	if m.PeriodEditor.EditID != "" {
		mode = "edit"
	}
	return views.RenderPeriodEditor(views.PeriodEditorData{
		Active:    true,
		Mode:      mode,
		StartText: m.PeriodEditor.StartText,
		EndText:   m.PeriodEditor.EndText,
		HoursText: m.PeriodEditor.HoursText,
		Field:     m.PeriodEditor.Field,
		ErrorText: m.PeriodEditor.Err,
	})
}

func (m Model) renderSettingsEditorIfVisible() string {
	if !m.SettingsEditor.Active {
		return ""
	}
	return views.RenderSettingsEditor(views.SettingsEditorData{
		Active:     true,
		MaxText:    m.SettingsEditor.MaxText,
		BufferText: m.SettingsEditor.BufferText,
		Field:      m.SettingsEditor.Field,
		ErrorText:  m.SettingsEditor.Err,
	})
}
