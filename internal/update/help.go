package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"timebox/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView:    string(m.CurrentView),
		GlobalBindings: formatBindings(m.globalBindings()),
		ViewBindings:   formatBindings(m.viewBindings()),
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func formatBindings(in []KeyBinding) []string {
	out := make([]string, 0, len(in))
	for _, kb := range in {
		out = append(out, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return out
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Active, Action: "switch to Active"},
		{Key: m.Keys.Archive, Action: "switch to Archive"},
		{Key: m.Keys.Periods, Action: "switch to Periods"},
		{Key: m.Keys.Stats, Action: "switch to Stats"},
		{Key: "/", Action: "open command palette"},
		{Key: "S", Action: "sweep expired tasks now"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewActive:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "a", Action: "add task"},
			{Key: "enter", Action: "complete selected"},
			{Key: "e", Action: "edit selected"},
			{Key: "x", Action: "delete selected"},
			{Key: "y", Action: "copy task id"},
		}
	case ViewArchive:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "r", Action: "reactivate expired task"},
			{Key: "x", Action: "delete selected"},
			{Key: "y", Action: "copy task id"},
		}
	case ViewPeriods:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "n", Action: "new period"},
			{Key: "e", Action: "edit period"},
			{Key: "x", Action: "delete period"},
			{Key: "s", Action: "edit limits"},
		}
	case ViewStats:
		return []KeyBinding{
			{Key: "-/+", Action: "shrink/grow range"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
