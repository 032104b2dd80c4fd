package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"timebox/internal/views"
)

var statsRangeSteps = []int{7, 14, 30, 90}

func (m Model) handleStatsKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "+", "=", "l":
		m.StatsDays = nextRangeStep(m.StatsDays, +1)
		m.refreshStats()
	case "-", "h":
		m.StatsDays = nextRangeStep(m.StatsDays, -1)
		m.refreshStats()
	}
	m.syncComponents()
	return m
}

func nextRangeStep(current, dir int) int {
	idx := 0
	for i, step := range statsRangeSteps {
		if step == current {
			idx = i
			break
		}
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(statsRangeSteps) {
		idx = len(statsRangeSteps) - 1
	}
	return statsRangeSteps[idx]
}

func (m *Model) refreshStats() {
	if m.Service == nil {
		return
	}
	stats, err := m.Service.StatsLastDays(context.Background(), m.StatsDays)
	if err != nil {
		m.failOp(err)
		return
	}
	m.StatsData = stats
}

func (m Model) renderStatsView() string {
	return views.RenderStatsPanel(views.StatsPanelData{
		RangeLabel:    fmt.Sprintf("last %d days", m.StatsDays),
		Finished:      m.StatsData.Finished,
		Unfinished:    m.StatsData.Unfinished,
		TotalAttempts: m.StatsData.TotalAttempts,
		RateLabel:     fmt.Sprintf("%.0f%%", m.StatsData.CompletionRate*100),
		ProgressView:  m.rateProgress.ViewAs(m.StatsData.CompletionRate),
	})
}

func (m Model) renderStatsSummaryPane() string {
	return "summary:\n" + m.detailViewport.View()
}

func (m Model) statsSummaryMarkdown() string {
	return fmt.Sprintf(
		"# Last %d days\n\n- finished: **%d**\n- unfinished: **%d**\n- attempts: **%d**\n- completion: **%.0f%%**\n",
		m.StatsDays,
		m.StatsData.Finished,
		m.StatsData.Unfinished,
		m.StatsData.TotalAttempts,
		m.StatsData.CompletionRate*100,
	)
}
