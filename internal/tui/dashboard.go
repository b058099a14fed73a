// Package tui renders an interactive dashboard over a warehouse document:
// a table browser, per-table detail, and a validation overlay.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/starforge/starforge/internal/schema"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	defectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1)
)

type focusArea int

const (
	focusList focusArea = iota
	focusDetail
)

// Model is the bubbletea model for the dashboard. Build it with New and
// hand it to tea.NewProgram, or use Run.
type Model struct {
	spec    *schema.SchemaSpec
	defects []string

	list   table.Model
	detail viewport.Model

	focus       focusArea
	showDefects bool
	ready       bool
	width       int
	height      int
}

func New(spec *schema.SchemaSpec) Model {
	columns := []table.Column{
		{Title: "Table", Width: 30},
		{Title: "Kind", Width: 10},
		{Title: "Columns", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(listRows(spec)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14"))
	t.SetStyles(s)

	return Model{
		spec:    spec,
		defects: schema.Validate(spec),
		list:    t,
	}
}

// Run drives the dashboard until the user quits.
func Run(spec *schema.SchemaSpec) error {
	_, err := tea.NewProgram(New(spec), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - 6
		if listHeight < 3 {
			listHeight = 3
		}
		m.list.SetHeight(listHeight)
		if !m.ready {
			m.detail = viewport.New(m.width, listHeight)
			m.ready = true
		} else {
			m.detail.Width = m.width
			m.detail.Height = listHeight
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "v":
			m.showDefects = !m.showDefects
			return m, nil

		case "enter":
			if m.focus == focusList {
				if row := m.list.SelectedRow(); len(row) > 0 {
					m.openDetail(row[0])
				}
			}
			return m, nil

		case "esc":
			if m.showDefects {
				m.showDefects = false
			} else if m.focus == focusDetail {
				m.focus = focusList
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == focusDetail {
		m.detail, cmd = m.detail.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *Model) openDetail(name string) {
	t, ok := m.spec.Find(name)
	if !ok {
		return
	}
	if !m.ready {
		m.detail = viewport.New(80, 20)
		m.ready = true
	}
	m.detail.SetContent(detailContent(t))
	m.detail.GotoTop()
	m.focus = focusDetail
}

func (m Model) View() string {
	var b strings.Builder

	title := "starforge dashboard"
	if m.spec.Warehouse != "" {
		title = fmt.Sprintf("starforge dashboard · %s", m.spec.Warehouse)
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	switch {
	case m.showDefects:
		b.WriteString(overlayStyle.Render(defectsContent(m.defects)))
	case m.focus == focusDetail:
		b.WriteString(m.detail.View())
	default:
		b.WriteString(m.list.View())
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render(m.keyHints()))
	return b.String()
}

func (m Model) statusLine() string {
	counts := fmt.Sprintf("%d dimensions · %d facts", len(m.spec.Dimensions), len(m.spec.Facts))
	if len(m.defects) > 0 {
		return counts + "  " + defectStyle.Render(fmt.Sprintf("%d defects", len(m.defects)))
	}
	return counts + "  " + healthyStyle.Render("valid")
}

func (m Model) keyHints() string {
	switch {
	case m.showDefects:
		return "esc/v close · q quit"
	case m.focus == focusDetail:
		return "j/k scroll · esc back · v defects · q quit"
	default:
		return "↑/↓ select · enter detail · v defects · q quit"
	}
}

// listRows flattens the spec into list entries, dimensions first.
func listRows(spec *schema.SchemaSpec) []table.Row {
	rows := make([]table.Row, 0, len(spec.Dimensions)+len(spec.Facts))
	for _, d := range spec.Dimensions {
		rows = append(rows, table.Row{d.Name, "dimension", fmt.Sprintf("%d", len(d.Columns))})
	}
	for _, f := range spec.Facts {
		rows = append(rows, table.Row{f.Name, "fact", fmt.Sprintf("%d", len(schema.ColumnsOf(f)))})
	}
	return rows
}

func detailContent(t schema.Table) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(t.TableName()))
	b.WriteString("\n\n")

	switch v := t.(type) {
	case *schema.Dimension:
		fmt.Fprintf(&b, "surrogate key  %s\n", valueOrDash(v.SurrogateKey))
		fmt.Fprintf(&b, "natural key    %s\n\n", valueOrDash(v.NaturalKey))
		writeColumns(&b, "columns", v.Columns)
	case *schema.Fact:
		fmt.Fprintf(&b, "grain  %s\n\n", valueOrDash(v.Grain))
		if len(v.ForeignKeys) > 0 {
			b.WriteString("foreign keys\n")
			for _, fk := range v.ForeignKeys {
				fmt.Fprintf(&b, "  %s -> %s\n", fk.Column, fk.References)
			}
			b.WriteString("\n")
		}
		writeColumns(&b, "columns", v.Columns)
		writeColumns(&b, "measures", v.Measures)
	}

	if indexes := t.TableIndexes(); len(indexes) > 0 {
		b.WriteString("indexes\n")
		for _, ix := range indexes {
			marker := ""
			if ix.Unique {
				marker = " unique"
			}
			fmt.Fprintf(&b, "  %s (%s)%s\n", ix.Name, strings.Join(ix.Columns, ", "), marker)
		}
	}
	return b.String()
}

func writeColumns(b *strings.Builder, label string, cols []*schema.Column) {
	if len(cols) == 0 {
		return
	}
	b.WriteString(label + "\n")
	for _, c := range cols {
		null := "not null"
		if c.Nullable {
			null = "null"
		}
		fmt.Fprintf(b, "  %-28s %-16s %s\n", c.Name, c.Type, null)
	}
	b.WriteString("\n")
}

func defectsContent(defects []string) string {
	if len(defects) == 0 {
		return healthyStyle.Render("No defects. The document satisfies every modeling rule.")
	}
	var b strings.Builder
	b.WriteString(defectStyle.Render(fmt.Sprintf("%d defects", len(defects))))
	b.WriteString("\n\n")
	for _, d := range defects {
		fmt.Fprintf(&b, "  ✗ %s\n", d)
	}
	return strings.TrimRight(b.String(), "\n")
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
