package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rmax-ai/orbweaver/pkg/client"
	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
)

// Config
const (
	pollRate       = time.Second
	maxNodes       = 30
	viewportHeight = 20
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	nodeIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(8)
	nodeLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Width(40)
	nodePosStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type tickMsg time.Time

type dataMsg struct {
	health Health
	diag   client.Diagnostics
	page   client.GraphPage
	err    error
}

// Health mirrors the daemon's health response through the SDK.
type Health = client.Health

type model struct {
	api      *client.Client
	spinner  spinner.Model
	viewport viewport.Model
	health   Health
	diag     client.Diagnostics
	page     client.GraphPage
	err      error
	ready    bool

	// frames is fed by the background WebSocket stream; fps is the delta
	// between poll ticks.
	frames    *atomic.Uint64
	lastCount uint64
	fps       uint64
}

func initialModel(api *client.Client, frames *atomic.Uint64) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		api:     api,
		spinner: s,
		frames:  frames,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.api),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		count := m.frames.Load()
		m.fps = count - m.lastCount
		m.lastCount = count
		cmds = append(cmds, fetchData(m.api), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.health = msg.health
			m.diag = msg.diag
			m.page = msg.page
			m.updateViewportContent()
		}

		if !m.ready {
			m.ready = true
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.Style = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				PaddingRight(2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	// Heaviest nodes first; they dominate the layout.
	nodes := make([]graph.Node, len(m.page.Nodes))
	copy(nodes, m.page.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Mass > nodes[j].Mass })

	for _, n := range nodes {
		line := fmt.Sprintf("%s %s %s\n",
			nodeIDStyle.Render(fmt.Sprintf("#%d", n.ID)),
			nodeLabelStyle.Render(n.Label),
			nodePosStyle.Render(fmt.Sprintf("(%.2f, %.2f, %.2f) m=%d", n.Position.X, n.Position.Y, n.Position.Z, n.Mass)),
		)
		sb.WriteString(line)
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	// Top Pane: daemon health and simulation diagnostics
	var top strings.Builder
	top.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Simulation") + "\n\n")

	top.WriteString(fmt.Sprintf("Daemon:  %s (version %s, up %s)\n",
		m.health.Status, m.health.Version, (time.Duration(m.health.UptimeSeconds) * time.Second).String()))
	top.WriteString(fmt.Sprintf("Graph:   %d nodes, %d edges\n", m.page.TotalNodes, m.page.TotalEdges))
	top.WriteString(fmt.Sprintf("Stream:  %d frames/s\n", m.fps))

	switch {
	case m.diag.InstanceID == "" && !m.diag.Available:
		top.WriteString(warnStyle.Render("Physics: no simulation instance") + "\n")
	case !m.diag.Available:
		top.WriteString(warnStyle.Render("Physics: state unavailable (instance busy)") + "\n")
	case m.diag.Running:
		accel := "cpu"
		if m.diag.AcceleratorPresent {
			accel = "accelerated"
		}
		top.WriteString(okStyle.Render(fmt.Sprintf("Physics: running (%s, instance %s)", accel, shortID(m.diag.InstanceID))) + "\n")
	default:
		top.WriteString(warnStyle.Render("Physics: stopped") + "\n")
	}

	topPane := paneStyle.Render(top.String())

	header := headerStyle.Render(fmt.Sprintf("%s Nodes by mass", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d/%d nodes shown", len(m.page.Nodes), m.page.TotalNodes))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()

		health, err := api.Health(ctx)
		if err != nil {
			return dataMsg{err: err}
		}

		page, err := api.GraphPage(ctx, 0, maxNodes)
		if err != nil {
			return dataMsg{err: err}
		}

		// Diagnostics 503s when physics is disabled; that is a state, not
		// an outage.
		diag, _ := api.Diagnostics(ctx)

		return dataMsg{health: health, diag: diag, page: page}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func main() {
	api := client.NewClient(os.Getenv("ORBWEAVER_ENDPOINT"))

	// Count frames off the live stream; reconnect while the dashboard runs.
	var frames atomic.Uint64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			_ = api.StreamFrames(ctx, func([]protocol.WireNode) error {
				frames.Add(1)
				return nil
			})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()

	p := tea.NewProgram(initialModel(api, &frames), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
