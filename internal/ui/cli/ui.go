package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	invalidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	status      docStatus
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	spinner    spinner.Model
	results    map[string]docResult
	validating bool
	lastUpdate time.Time
}

// validatingMsg is sent when a change was seen and documents are being re-read.
type validatingMsg struct{}

type resultsMsg struct {
	results []docResult
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Pipelines"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return model{
		list:       l,
		spinner:    s,
		results:    make(map[string]docResult),
		lastUpdate: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "q" && m.list.FilterState() != list.Filtering) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case validatingMsg:
		if m.validating {
			return m, nil
		}
		m.validating = true
		return m, m.spinner.Tick
	case spinner.TickMsg:
		if !m.validating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case resultsMsg:
		for _, r := range msg.results {
			if r.status == statusRemoved {
				delete(m.results, r.Path)
				continue
			}
			m.results[r.Path] = r
		}
		m.validating = false
		m.lastUpdate = time.Now()
		cmd := m.list.SetItems(m.items())
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// items lists problems first, then healthy pipelines, each group by path.
func (m model) items() []list.Item {
	results := make([]docResult, 0, len(m.results))
	for _, r := range m.results {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		ri, rj := rank(results[i].status), rank(results[j].status)
		if ri != rj {
			return ri < rj
		}
		return results[i].Path < results[j].Path
	})

	items := make([]list.Item, 0, len(results))
	for _, r := range results {
		items = append(items, item{title: r.Path, desc: describeResult(r), status: r.status})
	}
	return items
}

func rank(s docStatus) int {
	switch s {
	case statusInvalid:
		return 0
	case statusCyclic:
		return 1
	default:
		return 2
	}
}

func describeResult(r docResult) string {
	switch r.status {
	case statusDAG:
		return "DAG | " + countsText(r.Summary)
	case statusCyclic:
		return "Cycle detected | " + countsText(r.Summary)
	default:
		return "Invalid: " + r.Error
	}
}

func (m model) snapshot() []docResult {
	out := make([]docResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	return out
}

func (m model) View() string {
	activity := ""
	if m.validating {
		activity = " " + m.spinner.View() + " validating"
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d documents",
		m.lastUpdate.Format("15:04:05"), len(m.results))) + activity

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Pipeline DAG Monitor"), status, summaryLine(m.snapshot()))
	return docStyle.Render(header + "\n" + m.list.View())
}
