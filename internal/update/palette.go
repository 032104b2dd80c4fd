package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/commands"
	"timebox/internal/lifecycle"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			text := string(msg.Runes)
			if msg.Type == tea.KeySpace {
				text = " "
			}
			m.commandInput.SetValue(m.commandInput.Value() + text)
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		if msg.Type == tea.KeyBackspace {
			m.commandInput.SetValue(trimLast(m.commandInput.Value()))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.Palette.Active = false
		m.Palette.Input = ""
		return m
	}

	ctx := context.Background()
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			in := lifecycle.CreateInput{Title: a.Title}
			if a.By != "" {
				at, err := clockToday(m.now(), a.By)
				if err != nil {
					return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
				}
				in.Deadline = &at
			}
			task, err := m.Service.Create(ctx, in)
			if err != nil {
				return commands.Result{}, err
			}
			m.CurrentView = ViewActive
			return commands.Result{Message: fmt.Sprintf("added: %s due %s", task.Title, task.Deadline.Format("15:04"))}, nil
		},
		Done: func(a commands.DoneArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			task, err := m.Service.Complete(ctx, id)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("completed: %s", task.Title)}, nil
		},
		Drop: func(a commands.DropArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.Service.Delete(ctx, id); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("dropped: %s", shortID(id))}, nil
		},
		Redo: func(a commands.RedoArgs) (commands.Result, error) {
			id, err := m.resolveTarget(a.Target)
			if err != nil {
				return commands.Result{}, err
			}
			task, err := m.Service.Reactivate(ctx, id)
			if err != nil {
				return commands.Result{}, err
			}
			m.CurrentView = ViewActive
			return commands.Result{Message: fmt.Sprintf("reactivated: %s (attempt %d)", task.Title, task.ReactivationCount+1)}, nil
		},
		Stats: func(a commands.StatsArgs) (commands.Result, error) {
			stats, err := m.Service.StatsLastDays(ctx, a.Days)
			if err != nil {
				return commands.Result{}, err
			}
			m.StatsDays = a.Days
			m.StatsData = stats
			m.CurrentView = ViewStats
			return commands.Result{Message: fmt.Sprintf(
				"last %dd: %d finished, %d unfinished, %d attempts (%.0f%%)",
				a.Days, stats.Finished, stats.Unfinished, stats.TotalAttempts, stats.CompletionRate*100,
			)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
	} else {
		m.Status = StatusBar{Text: res.Message, IsError: false}
		m.notify("Command", res.Message, "info")
		m.refreshFromService()
	}

	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	return m
}

// resolveTarget maps a palette target to a task id: "selected" (or ".")
// takes the cursor in the current view, anything else matches an id prefix.
func (m Model) resolveTarget(target string) (string, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "selected" || target == "." {
		if t, ok := m.detailTask(); ok {
			return t.ID, nil
		}
		return "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "nothing selected"}
	}

	all := make([]string, 0, len(m.ActiveTasks)+len(m.ArchivedTasks))
	for _, t := range m.ActiveTasks {
		all = append(all, t.ID)
	}
	for _, t := range m.ArchivedTasks {
		all = append(all, t.ID)
	}

	matches := make([]string, 0, 1)
	for _, id := range all {
		if strings.HasPrefix(strings.ToLower(id), target) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no task matches %q", target)}
	default:
		return "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%d tasks match %q, use a longer prefix", len(matches), target)}
	}
}
