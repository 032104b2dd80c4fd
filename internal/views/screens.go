package views

import (
	"fmt"
	"strings"
)

type ActiveTaskData struct {
	ID        string
	Title     string
	Deadline  string
	Countdown string
	InBuffer  bool
	Critical  bool
	Attempt   int
}

type ActivePanelData struct {
	ListView     string
	Items        []ActiveTaskData
	SelectedID   string
	CapacityLine string
}

type ArchiveTaskData struct {
	ID         string
	Title      string
	Status     string
	FinishedAt string
	Attempt    int
}

type ArchivePanelData struct {
	ListView   string
	Items      []ArchiveTaskData
	SelectedID string
}

type PeriodRowData struct {
	ID       string
	Label    string
	MaxHours int
	Current  bool
}

type PeriodsPanelData struct {
	TableView    string
	Items        []PeriodRowData
	SelectedID   string
	SettingsLine string
}

type PeriodEditorData struct {
	Active    bool
	Mode      string
	StartText string
	EndText   string
	HoursText string
	Field     int
	ErrorText string
}

type SettingsEditorData struct {
	Active     bool
	MaxText    string
	BufferText string
	Field      int
	ErrorText  string
}

type StatsPanelData struct {
	RangeLabel    string
	Finished      int
	Unfinished    int
	TotalAttempts int
	RateLabel     string
	ProgressView  string
	SummaryView   string
}

type WindowStatusData struct {
	Open     bool
	Label    string
	MaxHours int
	Reason   string
	Clock    string
}

type HelpPanelData struct {
	CurrentView    string
	GlobalBindings []string
	ViewBindings   []string
	HelpView       string
}

func RenderWindowLine(data WindowStatusData) string {
	if data.Open {
		return fmt.Sprintf("window: OPEN %s (max %dh) | now %s", data.Label, data.MaxHours, data.Clock)
	}
	return fmt.Sprintf("window: CLOSED (%s) | now %s", data.Reason, data.Clock)
}

func RenderActivePanel(data ActivePanelData) string {
	var b strings.Builder
	b.WriteString("active:\n")
	b.WriteString("actions: [a]dd [enter]complete [e]dit [x]delete [y]ank-id\n")
	b.WriteString(data.CapacityLine + "\n")
	b.WriteString(data.ListView + "\n")
	if len(data.Items) == 0 {
		b.WriteString("  (nothing active)")
		return strings.TrimSpace(b.String())
	}
	for _, item := range data.Items {
		cursor := " "
		if data.SelectedID == item.ID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %s due:%s left:%s", cursor, activeBadge(item), item.Title, item.Deadline, item.Countdown))
		if item.Attempt > 0 {
			b.WriteString(fmt.Sprintf(" attempt:%d", item.Attempt+1))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderArchivePanel(data ArchivePanelData) string {
	completed := make([]ArchiveTaskData, 0)
	expired := make([]ArchiveTaskData, 0)
	for _, item := range data.Items {
		if item.Status == "completed" {
			completed = append(completed, item)
		} else {
			expired = append(expired, item)
		}
	}

	var b strings.Builder
	b.WriteString("archive:\n")
	b.WriteString("actions: [r]eactivate [x]delete [j/k]move\n")
	b.WriteString(data.ListView + "\n")
	renderArchiveSection(&b, "Completed", completed, data.SelectedID)
	renderArchiveSection(&b, "Expired", expired, data.SelectedID)
	return strings.TrimSpace(b.String())
}

func RenderPeriodsPanel(data PeriodsPanelData) string {
	var b strings.Builder
	b.WriteString("periods:\n")
	b.WriteString("actions: [n]ew [e]dit [x]delete [s]ettings [j/k]move\n")
	b.WriteString(data.SettingsLine + "\n")
	b.WriteString(data.TableView + "\n")
	if len(data.Items) == 0 {
		b.WriteString("  (no periods configured, default 05:00-21:00 applies)")
		return strings.TrimSpace(b.String())
	}
	for _, item := range data.Items {
		cursor := " "
		if data.SelectedID == item.ID {
			cursor = ">"
		}
		marker := " "
		if item.Current {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("%s %s %s max:%dh\n", cursor, marker, item.Label, item.MaxHours))
	}
	b.WriteString("(* contains the current time)")
	return strings.TrimSpace(b.String())
}

func RenderPeriodEditor(data PeriodEditorData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nperiod-editor (" + data.Mode + "):\n")
	b.WriteString("keys: [tab] field [enter] save [esc] close\n")
	b.WriteString(editorField("start", data.StartText, data.Field == 0))
	b.WriteString(editorField("end", data.EndText, data.Field == 1))
	b.WriteString(editorField("max-hours", data.HoursText, data.Field == 2))
	if data.ErrorText != "" {
		b.WriteString("error: " + data.ErrorText + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderSettingsEditor(data SettingsEditorData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nsettings-editor:\n")
	b.WriteString("keys: [tab] field [enter] save [esc] close\n")
	b.WriteString(editorField("max-active", data.MaxText, data.Field == 0))
	b.WriteString(editorField("buffer-minutes", data.BufferText, data.Field == 1))
	if data.ErrorText != "" {
		b.WriteString("error: " + data.ErrorText + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderStatsPanel(data StatsPanelData) string {
	var b strings.Builder
	b.WriteString("stats:\n")
	b.WriteString("actions: [-/+]range [j/k]n/a\n")
	b.WriteString(fmt.Sprintf("range: %s\n", data.RangeLabel))
	b.WriteString(fmt.Sprintf("finished: %d\n", data.Finished))
	b.WriteString(fmt.Sprintf("unfinished: %d\n", data.Unfinished))
	b.WriteString(fmt.Sprintf("total attempts: %d\n", data.TotalAttempts))
	b.WriteString(fmt.Sprintf("completion: %s %s\n", data.ProgressView, data.RateLabel))
	if data.SummaryView != "" {
		b.WriteString("\n" + data.SummaryView)
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotice(kind string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notice: [%s] %s", strings.ToUpper(kind), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nglobal:\n%s\n%s view:\n%s\n%s",
		strings.Join(data.GlobalBindings, "\n"),
		strings.ToLower(data.CurrentView),
		strings.Join(data.ViewBindings, "\n"),
		data.HelpView,
	)
}

func renderArchiveSection(b *strings.Builder, title string, items []ArchiveTaskData, selectedID string) {
	b.WriteString(fmt.Sprintf("\n%s:\n", title))
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, item := range items {
		cursor := " "
		if selectedID == item.ID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s", cursor, item.Title))
		if item.FinishedAt != "" {
			b.WriteString(fmt.Sprintf(" at:%s", item.FinishedAt))
		}
		if item.Attempt > 0 {
			b.WriteString(fmt.Sprintf(" attempt:%d", item.Attempt+1))
		}
		b.WriteString("\n")
	}
}

func editorField(name, value string, focused bool) string {
	cursor := " "
	if focused {
		cursor = ">"
	}
	return fmt.Sprintf("%s %s: %s\n", cursor, name, value)
}

func activeBadge(item ActiveTaskData) string {
	if item.InBuffer {
		return "[RED]"
	}
	if item.Critical {
		return "[YELLOW]"
	}
	return "[GREEN]"
}
