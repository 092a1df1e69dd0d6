// Package tui renders the live operator monitor in the terminal.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gitpusher/pushkit/internal/models"
	"github.com/gitpusher/pushkit/internal/telemetry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#22D3EE"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#22D3EE")).
			Padding(0, 1)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	stoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// Monitor owns the aggregator for the lifetime of the view. Quitting the
// view stops the aggregator: streams closed, timers cleared.
type Monitor struct {
	aggregator *telemetry.Aggregator
}

// NewMonitor builds the monitor view.
func NewMonitor(aggregator *telemetry.Aggregator) *Monitor {
	return &Monitor{aggregator: aggregator}
}

// Run starts the aggregator and blocks until the view exits. The
// aggregator is always stopped on the way out.
func (m *Monitor) Run(ctx context.Context) error {
	m.aggregator.Start(ctx)
	defer m.aggregator.Stop()

	p := tea.NewProgram(newModel(ctx, m.aggregator), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}

type refreshMsg telemetry.View

type model struct {
	ctx        context.Context
	aggregator *telemetry.Aggregator
	view       telemetry.View
	spinner    spinner.Model
	width      int
	height     int
}

func newModel(ctx context.Context, aggregator *telemetry.Aggregator) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = degradedStyle
	return model{ctx: ctx, aggregator: aggregator, spinner: sp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spinner.Tick)
}

func (m model) refresh() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return refreshMsg(m.aggregator.Snapshot(m.ctx))
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case refreshMsg:
		m.view = telemetry.View(msg)
		return m, m.refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pushkit live monitor"))
	b.WriteString("\n\n")

	b.WriteString(paneStyle.Render(m.renderFeed("AI activity", m.view.AISamples, m.view.Health[telemetry.ComponentAIStream])))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(fmt.Sprintf("recommendation likelihood: %3.0f%%", m.view.AILikelihood)))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.renderFeed("traffic rps", m.view.TrafficSamples, m.view.Health[telemetry.ComponentTrafficStream])))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.renderStats()))
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.renderPresence()))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("q: quit"))
	return b.String()
}

// sparkline glyphs, lowest to highest.
var sparks = []rune("▁▂▃▄▅▆▇█")

func (m model) renderFeed(label string, samples []models.RealtimeSample, health telemetry.Health) string {
	width := m.width - 8
	if width < 20 {
		width = 60
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	var min, max float64
	for i, s := range samples {
		if i == 0 || s.Value < min {
			min = s.Value
		}
		if i == 0 || s.Value > max {
			max = s.Value
		}
	}

	var line strings.Builder
	for _, s := range samples {
		idx := 0
		if max > min {
			idx = int((s.Value - min) / (max - min) * float64(len(sparks)-1))
		}
		line.WriteRune(sparks[idx])
	}

	badge := ""
	switch health {
	case telemetry.HealthDegraded:
		badge = " " + m.spinner.View() + degradedStyle.Render("connecting")
	case telemetry.HealthStopped:
		badge = " " + stoppedStyle.Render("[stopped]")
	}
	return fmt.Sprintf("%s%s\n%s", label, badge, line.String())
}

func (m model) renderStats() string {
	stats := m.view.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "rps %.2f | active users %d | unique visitors %d | avg response %.1fms\n",
		stats.RPS, stats.ActiveUsers, stats.UniqueVisitors, stats.AvgResponseMS)

	type endpointCount struct {
		path  string
		count int
	}
	endpoints := make([]endpointCount, 0, len(stats.TopEndpoints))
	for path, count := range stats.TopEndpoints {
		endpoints = append(endpoints, endpointCount{path, count})
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].count > endpoints[j].count })
	if len(endpoints) > 5 {
		endpoints = endpoints[:5]
	}
	for _, e := range endpoints {
		fmt.Fprintf(&b, "  %-40s %d\n", e.path, e.count)
	}
	if health := m.view.Health[telemetry.ComponentStatsPoll]; health != telemetry.HealthHealthy {
		b.WriteString(degradedStyle.Render("[aggregates degraded]"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) renderPresence() string {
	if m.view.Presence.Online {
		name := m.view.Presence.Name
		if name == "" {
			name = "support"
		}
		return onlineStyle.Render(fmt.Sprintf("● %s online", name))
	}
	return stoppedStyle.Render("● support offline")
}
