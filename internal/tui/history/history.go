package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tracegen/internal/storage"
	"tracegen/internal/tui/styles"
)

// Model browses recorded generation runs. Enter toggles the detail pane
// of the selected run.
type Model struct {
	Items []storage.HistoryItem
	Table table.Model

	ShowDetail bool
	Width      int
	Height     int
}

func NewModel(items []storage.HistoryItem) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Seed", Width: 20},
		{Title: "Hosts", Width: 7},
		{Title: "Jobs", Width: 7},
		{Title: "Span (s)", Width: 10},
		{Title: "Load", Width: 6},
		{Title: "Workload", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		Items: items,
		Table: t,
	}
	m.Refresh()
	return m
}

func (m *Model) Refresh() {
	rows := make([]table.Row, len(m.Items))
	for i, item := range m.Items {
		rows[i] = table.Row{
			item.Timestamp.Format(time.RFC822),
			seedLabel(item),
			fmt.Sprintf("%d", item.Summary.Hosts),
			fmt.Sprintf("%d", item.Summary.Jobs),
			fmt.Sprintf("%d", item.Summary.LastArrival),
			fmt.Sprintf("%.2f", item.Summary.OfferedLoad),
			item.WorkloadPath,
		}
	}
	m.Table.SetRows(rows)
}

// Selected returns the highlighted run, if any.
func (m Model) Selected() (storage.HistoryItem, bool) {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return storage.HistoryItem{}, false
	}
	return m.Items[i], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.ShowDetail = !m.ShowDetail
			return m, nil
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Generation history"))
	b.WriteString("\n")
	if len(m.Items) == 0 {
		b.WriteString(styles.Subtle.Render("no runs recorded yet"))
		b.WriteString("\n")
	} else {
		b.WriteString(styles.Box.Render(m.Table.View()))
		b.WriteString("\n")
	}
	if item, ok := m.Selected(); ok && m.ShowDetail {
		b.WriteString(styles.Box.Render(Detail(item)))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.RenderKey("↑/↓", "select"), "  ",
		styles.RenderKey("enter", "details"), "  ",
		styles.RenderKey("q", "quit"),
	))
	return b.String()
}

// Detail renders every recorded field of one run.
func Detail(item storage.HistoryItem) string {
	s := item.Summary
	lines := []string{
		styles.Row("Run", item.ID),
		styles.Row("Time", item.Timestamp.Format(time.RFC3339)),
		styles.Row("Seed", seedLabel(item)),
		styles.Row("Platform", fmt.Sprintf("%s (%s)", item.PlatformPath, item.PlatformDigest)),
		styles.Row("Workload", fmt.Sprintf("%s (%s)", item.WorkloadPath, item.WorkloadDigest)),
		styles.Row("Hosts", fmt.Sprintf("%d, %.2f Gf total", s.Hosts, s.TotalSpeed)),
		styles.Row("Jobs", fmt.Sprintf("%d over %d s", s.Jobs, s.LastArrival)),
		styles.Row("Delay", fmt.Sprintf("mean %.1f s, p99 %d s", s.MeanDelay, s.P99Delay)),
		styles.Row("Size", fmt.Sprintf("mean %.2f hosts", s.MeanSize)),
		styles.Row("Walltime", fmt.Sprintf("mean %.0f%% of delay", s.MeanOverestPct)),
		styles.Row("Offered load", fmt.Sprintf("%.2f", s.OfferedLoad)),
	}
	if s.Clamped > 0 {
		lines = append(lines, styles.Warn.Render(fmt.Sprintf("%d draws clamped by reject_limit", s.Clamped)))
	}
	return strings.Join(lines, "\n")
}

func seedLabel(item storage.HistoryItem) string {
	if item.Seeded {
		return fmt.Sprintf("%d", item.Seed)
	}
	return fmt.Sprintf("%d*", item.Seed)
}
