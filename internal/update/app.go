package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/lifecycle"
	"timebox/internal/model"
	"timebox/internal/notify"
	"timebox/internal/schedule"
	"timebox/internal/views"
)

type View string

const (
	ViewActive  View = "Active"
	ViewArchive View = "Archive"
	ViewPeriods View = "Periods"
	ViewStats   View = "Stats"
)

type GlobalKeyMap struct {
	Active  string
	Archive string
	Periods string
	Stats   string
	Help    string
	Quit    string
}

type StatusBar struct {
	Text    string
	IsError bool
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// TaskFormState drives the add/edit overlay. EditID empty means a new task.
type TaskFormState struct {
	Active bool
	EditID string
	Field  int
	Err    string
}

type PeriodEditorState struct {
	Active    bool
	EditID    string
	StartText string
	EndText   string
	HoursText string
	Field     int
	Err       string
}

type SettingsEditorState struct {
	Active     bool
	MaxText    string
	BufferText string
	Field      int
	Err        string
}

type UIConfig struct {
	DesktopNotifications bool
	SweepInterval        time.Duration
	StatsDays            int
}

func DefaultUIConfig() UIConfig {
	return UIConfig{
		SweepInterval: time.Minute,
		StatsDays:     7,
	}
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type TickMsg time.Time

// SweepTickMsg fires on the periodic sweep interval; SweepNowMsg is the
// one-shot variant behind the manual S key.
type SweepTickMsg time.Time

type SweepNowMsg struct{}

type NoticeMsg struct {
	Event notify.Event
}

type listItem struct {
	title string
	desc  string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

type Model struct {
	CurrentView View

	Service *lifecycle.Service
	Engine  *notify.Engine

	ActiveTasks   []model.Task
	ArchivedTasks []model.Task
	Periods       []model.TimePeriod
	Settings      model.Settings
	Window        schedule.Window
	StatsDays     int
	StatsData     lifecycle.Stats

	ActiveCursor  int
	ArchiveCursor int
	PeriodCursor  int

	TaskForm       TaskFormState
	PeriodEditor   PeriodEditorState
	SettingsEditor SettingsEditorState
	Palette        CommandPaletteState

	NoticeLog     []notify.Event
	Notifications []Notification

	Status       StatusBar
	Keys         GlobalKeyMap
	HelpVisible  bool
	Quitting     bool
	LastError    error
	SweepRunning bool

	DesktopEnabled bool
	notifier       DesktopNotifier
	sweepEvery     time.Duration

	activeList     list.Model
	archiveList    list.Model
	periodsTable   table.Model
	titleInput     textinput.Model
	descArea       textarea.Model
	deadlineInput  textinput.Model
	commandInput   textinput.Model
	rateProgress   progress.Model
	sweepSpinner   spinner.Model
	helpModel      help.Model
	detailViewport viewport.Model
}

func NewModel(svc *lifecycle.Service) Model {
	return NewModelWithConfig(svc, nil, NoopDesktopNotifier{}, DefaultUIConfig())
}

func NewModelWithConfig(svc *lifecycle.Service, engine *notify.Engine, notifier DesktopNotifier, cfg UIConfig) Model {
	m := Model{
		CurrentView:    ViewActive,
		Service:        svc,
		Engine:         engine,
		StatsDays:      cfg.StatsDays,
		DesktopEnabled: cfg.DesktopNotifications,
		notifier:       notifier,
		sweepEvery:     cfg.SweepInterval,
		Keys: GlobalKeyMap{
			Active:  "1",
			Archive: "2",
			Periods: "3",
			Stats:   "4",
			Help:    "?",
			Quit:    "q",
		},
	}
	if m.notifier == nil {
		m.notifier = NoopDesktopNotifier{}
	}
	if m.StatsDays < 1 {
		m.StatsDays = 7
	}
	if m.sweepEvery <= 0 {
		m.sweepEvery = time.Minute
	}
	m.initComponents()
	m.refreshFromService()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), sweepTickCmd(m.sweepEvery)}
	if cmd := waitForNoticeCmd(m.noticeChannel()); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.SweepRunning {
			var cmd tea.Cmd
			m.sweepSpinner, cmd = m.sweepSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case TickMsg:
		m.refreshWindow()
		m.syncComponents()
		return m, tickCmd()
	case SweepTickMsg:
		m.runSweep()
		return m, sweepTickCmd(m.sweepEvery)
	case SweepNowMsg:
		m.runSweep()
		return m, nil
	case NoticeMsg:
		m.onNotice(typed.Event)
		if cmd := waitForNoticeCmd(m.noticeChannel()); cmd != nil {
			return m, cmd
		}
		return m, nil
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
			if typed.View == ViewStats {
				m.refreshStats()
			}
			m.syncComponents()
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}
	if m.Palette.Active {
		return m.handlePaletteKey(msg), nil
	}
	if m.TaskForm.Active {
		return m.handleTaskFormKey(msg), nil
	}
	if m.PeriodEditor.Active {
		return m.handlePeriodEditorKey(msg), nil
	}
	if m.SettingsEditor.Active {
		return m.handleSettingsEditorKey(msg), nil
	}

	switch msg.String() {
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case "/":
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active", IsError: false}
		return m, nil
	case m.Keys.Active:
		m.CurrentView = ViewActive
		m.syncComponents()
		return m, nil
	case m.Keys.Archive:
		m.CurrentView = ViewArchive
		m.syncComponents()
		return m, nil
	case m.Keys.Periods:
		m.CurrentView = ViewPeriods
		m.syncComponents()
		return m, nil
	case m.Keys.Stats:
		m.CurrentView = ViewStats
		m.refreshStats()
		m.syncComponents()
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case "S":
		if m.SweepRunning {
			return m, nil
		}
		m.SweepRunning = true
		m.Status = StatusBar{Text: "sweeping expired tasks", IsError: false}
		return m, tea.Batch(m.sweepSpinner.Tick, func() tea.Msg { return SweepNowMsg{} })
	}

	switch m.CurrentView {
	case ViewActive:
		return m.handleActiveKey(msg), nil
	case ViewArchive:
		return m.handleArchiveKey(msg), nil
	case ViewPeriods:
		return m.handlePeriodsKey(msg), nil
	case ViewStats:
		return m.handleStatsKey(msg), nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return "bye\n"
	}

	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	var leftPane, rightPane string
	switch m.CurrentView {
	case ViewActive:
		leftPane = m.renderActiveView()
		rightPane = joinSections(
			m.renderTaskDetailPane(),
			m.renderTaskFormIfVisible(),
			m.renderCommandPalette(),
			m.renderHelpIfVisible(),
		)
	case ViewArchive:
		leftPane = m.renderArchiveView()
		rightPane = joinSections(
			m.renderTaskDetailPane(),
			m.renderCommandPalette(),
			m.renderHelpIfVisible(),
		)
	case ViewPeriods:
		leftPane = m.renderPeriodsView()
		rightPane = joinSections(
			m.renderPeriodEditorIfVisible(),
			m.renderSettingsEditorIfVisible(),
			m.renderCommandPalette(),
			m.renderHelpIfVisible(),
		)
	case ViewStats:
		leftPane = m.renderStatsView()
		rightPane = joinSections(
			m.renderStatsSummaryPane(),
			m.renderCommandPalette(),
			m.renderHelpIfVisible(),
		)
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("timebox | view: %s | selected: %s", m.CurrentView, m.selectedLabel()),
		WindowLine: m.renderWindowLine(),
		LeftPane:   leftPane,
		RightPane:  rightPane,
		StatusLine: status,
		Notice:     m.renderNoticeArea(),
		Footer: fmt.Sprintf(
			"keys: %s active | %s archive | %s periods | %s stats | / command | S sweep | %s help | %s quit",
			m.Keys.Active, m.Keys.Archive, m.Keys.Periods, m.Keys.Stats, m.Keys.Help, m.Keys.Quit,
		),
	})
}

func (m Model) renderWindowLine() string {
	now := m.now()
	return views.RenderWindowLine(views.WindowStatusData{
		Open:     m.Window.CanCreate,
		Label:    m.Window.Period.Label(),
		MaxHours: m.Window.MaxHours,
		Reason:   m.Window.Reason,
		Clock:    now.Format("15:04"),
	})
}

func (m Model) renderNoticeArea() string {
	sections := make([]string, 0, 3)
	if len(m.NoticeLog) > 0 {
		last := m.NoticeLog[len(m.NoticeLog)-1]
		sections = append(sections, views.RenderNotice(last.Kind, fmt.Sprintf("%s @ %s", last.Title, last.TriggerAt.Format("15:04"))))
	}
	if m.SweepRunning {
		sections = append(sections, "sweep: "+m.sweepSpinner.View()+" running")
	}
	if n := m.lastNotificationView(); n != "" {
		sections = append(sections, n)
	}
	return joinSections(sections...)
}

func (m Model) lastNotificationView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotice(n.Level, n.Body)
}

func (m Model) renderCommandPalette() string {
	if !m.Palette.Active {
		return ""
	}
	return views.RenderCommandPalette(m.Palette.Active, m.Palette.Input) + "\n" + m.commandInput.View()
}

func (m Model) selectedLabel() string {
	switch m.CurrentView {
	case ViewActive:
		if t, ok := m.selectedActive(); ok {
			return shortID(t.ID)
		}
	case ViewArchive:
		if t, ok := m.selectedArchived(); ok {
			return shortID(t.ID)
		}
	case ViewPeriods:
		if p, ok := m.selectedPeriod(); ok {
			return p.Label()
		}
	case ViewStats:
		return fmt.Sprintf("%dd", m.StatsDays)
	}
	return "-"
}

func (m Model) selectedActive() (model.Task, bool) {
	if m.ActiveCursor < 0 || m.ActiveCursor >= len(m.ActiveTasks) {
		return model.Task{}, false
	}
	return m.ActiveTasks[m.ActiveCursor], true
}

func (m Model) selectedArchived() (model.Task, bool) {
	if m.ArchiveCursor < 0 || m.ArchiveCursor >= len(m.ArchivedTasks) {
		return model.Task{}, false
	}
	return m.ArchivedTasks[m.ArchiveCursor], true
}

func (m Model) selectedPeriod() (model.TimePeriod, bool) {
	if m.PeriodCursor < 0 || m.PeriodCursor >= len(m.Periods) {
		return model.TimePeriod{}, false
	}
	return m.Periods[m.PeriodCursor], true
}

func (m Model) taskByID(id string) (model.Task, bool) {
	for _, t := range m.ActiveTasks {
		if t.ID == id {
			return t, true
		}
	}
	for _, t := range m.ArchivedTasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// detailTask picks what the right-hand detail pane describes.
func (m Model) detailTask() (model.Task, bool) {
	switch m.CurrentView {
	case ViewActive:
		return m.selectedActive()
	case ViewArchive:
		return m.selectedArchived()
	}
	return model.Task{}, false
}

func (m Model) now() time.Time {
	if m.Service != nil {
		return m.Service.Now()
	}
	return time.Now().UTC()
}

func (m Model) noticeChannel() <-chan notify.Event {
	if m.Engine == nil {
		return nil
	}
	return m.Engine.C()
}

func (m *Model) initComponents() {
	m.activeList = list.New([]list.Item{}, list.NewDefaultDelegate(), 58, 10)
	m.activeList.Title = "Active"
	m.activeList.SetShowHelp(false)
	m.activeList.SetFilteringEnabled(false)
	m.activeList.SetShowStatusBar(false)

	m.archiveList = list.New([]list.Item{}, list.NewDefaultDelegate(), 58, 10)
	m.archiveList.Title = "Archive"
	m.archiveList.SetShowHelp(false)
	m.archiveList.SetFilteringEnabled(false)
	m.archiveList.SetShowStatusBar(false)

	m.periodsTable = table.New(
		table.WithColumns([]table.Column{
			{Title: "Start", Width: 7},
			{Title: "End", Width: 7},
			{Title: "Max", Width: 5},
			{Title: "Open", Width: 6},
		}),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	m.titleInput = textinput.New()
	m.titleInput.Prompt = "title> "
	m.titleInput.CharLimit = 200
	m.titleInput.Width = 44

	m.descArea = textarea.New()
	m.descArea.Placeholder = "Details (markdown)"
	m.descArea.SetWidth(46)
	m.descArea.SetHeight(4)
	m.descArea.ShowLineNumbers = false

	m.deadlineInput = textinput.New()
	m.deadlineInput.Prompt = "by> "
	m.deadlineInput.CharLimit = 5
	m.deadlineInput.Width = 30

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 200
	m.commandInput.Width = 48

	m.rateProgress = progress.New(progress.WithDefaultGradient())
	m.rateProgress.Width = 30

	m.sweepSpinner = spinner.New()
	m.sweepSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()

	m.detailViewport = viewport.New(50, 8)
}

// syncComponents pushes model state into the bubble components after any
// mutation, so their View output matches the cursors and caches.
func (m *Model) syncComponents() {
	now := m.now()

	activeItems := make([]list.Item, 0, len(m.ActiveTasks))
	for _, t := range m.ActiveTasks {
		activeItems = append(activeItems, listItem{
			title: t.Title,
			desc:  fmt.Sprintf("due %s, %s left", t.Deadline.Format("15:04"), formatRemaining(t.Remaining(now))),
		})
	}
	m.activeList.SetItems(activeItems)
	if m.ActiveCursor >= 0 && m.ActiveCursor < len(activeItems) {
		m.activeList.Select(m.ActiveCursor)
	}

	archiveItems := make([]list.Item, 0, len(m.ArchivedTasks))
	for _, t := range m.ArchivedTasks {
		archiveItems = append(archiveItems, listItem{
			title: t.Title,
			desc:  string(t.Status),
		})
	}
	m.archiveList.SetItems(archiveItems)
	if m.ArchiveCursor >= 0 && m.ArchiveCursor < len(archiveItems) {
		m.archiveList.Select(m.ArchiveCursor)
	}

	rows := make([]table.Row, 0, len(m.Periods))
	for _, p := range m.Periods {
		open := "no"
		if schedule.ResolveWindow(now, []model.TimePeriod{p}).CanCreate {
			open = "yes"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%02d:%02d", p.StartHour, p.StartMinute),
			fmt.Sprintf("%02d:%02d", p.EndHour, p.EndMinute),
			fmt.Sprintf("%dh", p.MaxHours),
			open,
		})
	}
	m.periodsTable.SetRows(rows)
	if m.PeriodCursor >= 0 && m.PeriodCursor < len(rows) {
		m.periodsTable.SetCursor(m.PeriodCursor)
	}

	if m.CurrentView == ViewStats {
		m.detailViewport.SetContent(views.RenderMarkdown(m.statsSummaryMarkdown()))
	} else if t, ok := m.detailTask(); ok {
		md := t.Description
		if strings.TrimSpace(md) == "" {
			md = "_no details_"
		}
		m.detailViewport.SetContent(views.RenderMarkdown(md))
	} else {
		m.detailViewport.SetContent("")
	}
}

func (m *Model) refreshFromService() {
	if m.Service == nil {
		return
	}
	ctx := context.Background()
	m.ActiveTasks = m.Service.Active()
	m.ArchivedTasks = m.Service.Archived()
	if periods, err := m.Service.Periods(ctx); err == nil {
		m.Periods = periods
	}
	if settings, err := m.Service.Settings(ctx); err == nil {
		m.Settings = settings
	}
	m.refreshWindow()
	m.clampCursors()
	m.syncComponents()
}

func (m *Model) refreshWindow() {
	if m.Service == nil {
		return
	}
	if w, err := m.Service.Window(context.Background()); err == nil {
		m.Window = w
	}
}

func (m *Model) clampCursors() {
	if m.ActiveCursor >= len(m.ActiveTasks) {
		m.ActiveCursor = len(m.ActiveTasks) - 1
	}
	if m.ActiveCursor < 0 {
		m.ActiveCursor = 0
	}
	if m.ArchiveCursor >= len(m.ArchivedTasks) {
		m.ArchiveCursor = len(m.ArchivedTasks) - 1
	}
	if m.ArchiveCursor < 0 {
		m.ArchiveCursor = 0
	}
	if m.PeriodCursor >= len(m.Periods) {
		m.PeriodCursor = len(m.Periods) - 1
	}
	if m.PeriodCursor < 0 {
		m.PeriodCursor = 0
	}
}

func (m *Model) runSweep() {
	defer func() { m.SweepRunning = false }()
	if m.Service == nil {
		return
	}
	expired, err := m.Service.Sweep(context.Background())
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	if expired > 0 {
		m.Status = StatusBar{Text: fmt.Sprintf("%d task(s) expired unfinished", expired), IsError: false}
		m.notify("Expired", m.Status.Text, "info")
	}
	m.refreshFromService()
}

func (m *Model) onNotice(ev notify.Event) {
	m.NoticeLog = append(m.NoticeLog, ev)
	if len(m.NoticeLog) > 20 {
		m.NoticeLog = m.NoticeLog[len(m.NoticeLog)-20:]
	}

	var body string
	switch ev.Kind {
	case notify.KindReminder:
		body = fmt.Sprintf("deadline approaching: %s", ev.Title)
	case notify.KindBuffer:
		body = fmt.Sprintf("deadline reached, buffer running: %s", ev.Title)
	default:
		body = ev.Title
	}
	m.Status = StatusBar{Text: body, IsError: false}
	m.notify("Timebox", body, "info")
	m.refreshFromService()
}

func (m *Model) notify(title, body, level string) {
	n := Notification{Title: title, Body: body, Level: level, At: time.Now().UTC()}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > 10 {
		m.Notifications = m.Notifications[len(m.Notifications)-10:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		if err := m.notifier.Send(n); err != nil {
			m.LastError = err
		}
	}
}

func (m *Model) failOp(err error) {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
	m.notify("Rejected", err.Error(), "error")
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func sweepTickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return SweepTickMsg(t)
	})
}

func waitForNoticeCmd(ch <-chan notify.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return NoticeMsg{Event: ev}
	}
}

func isKnownView(v View) bool {
	switch v {
	case ViewActive, ViewArchive, ViewPeriods, ViewStats:
		return true
	default:
		return false
	}
}

func joinSections(sections ...string) string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s) == "" {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, "\n")
}
