package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dot5enko/virtual-grid/columns"
	"github.com/dot5enko/virtual-grid/edit"
	"github.com/dot5enko/virtual-grid/grid"
	"github.com/dot5enko/virtual-grid/render"
	"github.com/dot5enko/virtual-grid/schema"
	"github.com/dot5enko/virtual-grid/window"
)

// column widths are stored in pixels, the terminal shows one char per cellPixels
const cellPixels = 8

// header, status and help lines
const chromeLines = 3

const (
	indexColumnChars   = 8
	pendingPlaceholder = "···"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	focusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	focusCellStyle   = lipgloss.NewStyle().Background(lipgloss.Color("11")).Foreground(lipgloss.Color("0"))
	editCellStyle    = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	errorCellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	bannerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	columnSeparator  = placeholderStyle.Render("│")
)

type changedMsg struct {
	open bool
}

type Model struct {
	table *grid.Table
	ctx   context.Context

	width  int
	height int
	ready  bool

	scrollRow int
	message   string
}

func New(ctx context.Context, table *grid.Table) Model {
	return Model{
		table: table,
		ctx:   ctx,
	}
}

// Run blocks until the user quits.
func Run(ctx context.Context, table *grid.Table) error {
	p := tea.NewProgram(New(ctx, table), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func waitForChange(t *grid.Table) tea.Cmd {
	return func() tea.Msg {
		_, open := <-t.Changes()
		return changedMsg{open: open}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.table)
}

func (m Model) bodyLines() int {
	return max(m.height-chromeLines, 1)
}

func (m Model) rowHeight() float64 {
	return m.table.Config().RowHeight
}

func (m Model) viewport() window.Viewport {
	return window.Viewport{
		ScrollTop: float64(m.scrollRow) * m.rowHeight(),
		Height:    float64(m.bodyLines()-1) * m.rowHeight(),
	}
}

func (m Model) maxScrollRow() int {
	return max(m.table.Rows().Len()-m.bodyLines(), 0)
}

func (m *Model) scrollTo(row int) {
	row = min(max(row, 0), m.maxScrollRow())
	if row == m.scrollRow {
		return
	}
	m.scrollRow = row
	m.table.Scroll(m.viewport())
}

// follow keeps the focused row on screen.
func (m *Model) follow() {
	focus := m.table.Editor().Focus()
	if focus.Row < m.scrollRow {
		m.scrollTo(focus.Row)
	} else if focus.Row >= m.scrollRow+m.bodyLines() {
		m.scrollTo(focus.Row - m.bodyLines() + 1)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.ready = true
			m.scrollRow = min(int(m.table.SavedOffset()/m.rowHeight()), m.maxScrollRow())
		}
		m.table.ScrollNow(m.viewport())

	case changedMsg:
		if !msg.open {
			return m, nil
		}
		return m, waitForChange(m.table)

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollTo(m.scrollRow - 3)
		case tea.MouseButtonWheelDown:
			m.scrollTo(m.scrollRow + 3)
		}

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {

	m.message = ""
	editor := m.table.Editor()

	if editor.Phase() == edit.Idle {
		if handled, cmd := m.command(msg); handled {
			return m, cmd
		}
	} else if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	k, ok := translateKey(msg)
	if !ok {
		return m, nil
	}

	if _, err := m.table.HandleKey(m.ctx, k); err != nil {
		m.message = err.Error()
	}
	m.follow()

	return m, nil
}

func (m *Model) focusedColumn() (schema.Column, int, bool) {
	cols := m.table.Columns().Visible()
	idx := m.table.Editor().Focus().Col
	if idx < 0 || idx >= len(cols) {
		return schema.Column{}, idx, false
	}
	return cols[idx], idx, true
}

// command handles keys that act on the grid rather than on a cell.
func (m *Model) command(msg tea.KeyMsg) (bool, tea.Cmd) {

	model := m.table.Columns()
	editor := m.table.Editor()

	switch {
	case key.Matches(msg, gridKeys.Quit):
		return true, tea.Quit

	case key.Matches(msg, gridKeys.PageUp):
		m.scrollTo(m.scrollRow - m.bodyLines())
		editor.SetFocus(edit.Addr{Row: m.scrollRow, Col: editor.Focus().Col})

	case key.Matches(msg, gridKeys.PageDown):
		m.scrollTo(m.scrollRow + m.bodyLines())
		editor.SetFocus(edit.Addr{Row: m.scrollRow, Col: editor.Focus().Col})

	case key.Matches(msg, gridKeys.Home):
		m.scrollTo(0)
		editor.SetFocus(edit.Addr{Row: 0, Col: editor.Focus().Col})

	case key.Matches(msg, gridKeys.End):
		m.scrollTo(m.maxScrollRow())

	case key.Matches(msg, gridKeys.Sort):
		col, _, ok := m.focusedColumn()
		if !ok {
			return true, nil
		}
		q := m.table.Query()
		order := schema.Asc
		if q.SortKey == col.Key {
			order = q.SortOrder.Toggle()
		}
		if err := m.table.SetSort(m.ctx, col.Key, order); err != nil {
			m.message = err.Error()
		}

	case key.Matches(msg, gridKeys.Hide):
		col, _, ok := m.focusedColumn()
		if !ok || len(model.Visible()) == 1 {
			return true, nil
		}
		if _, err := model.ToggleVisibility(col.ID); err != nil {
			m.message = err.Error()
		}
		editor.FocusColumn(editor.Focus().Col)

	case key.Matches(msg, gridKeys.ShowAll):
		for _, c := range model.All() {
			if c.Hidden {
				model.ToggleVisibility(c.ID)
			}
		}

	case key.Matches(msg, gridKeys.Wider), key.Matches(msg, gridKeys.Narrower):
		col, _, ok := m.focusedColumn()
		if !ok {
			return true, nil
		}
		step := 4 * cellPixels
		if key.Matches(msg, gridKeys.Narrower) {
			step = -step
		}
		if _, err := model.Resize(col.ID, col.Width+step); err != nil {
			m.message = err.Error()
		}

	case key.Matches(msg, gridKeys.MoveLeft), key.Matches(msg, gridKeys.MoveRight):
		m.moveColumn(key.Matches(msg, gridKeys.MoveRight))

	case key.Matches(msg, gridKeys.Retry):
		m.table.Retry()

	case key.Matches(msg, gridKeys.RetryLayout):
		if !model.RetrySave() {
			m.message = "layout already saved"
		}

	default:
		return false, nil
	}

	return true, nil
}

// moveColumn drags the focused column over its neighbour.
func (m *Model) moveColumn(right bool) {

	cols := m.table.Columns().Visible()
	col, idx, ok := m.focusedColumn()
	if !ok {
		return
	}

	neighbour := idx - 1
	if right {
		neighbour = idx + 1
	}
	if neighbour < 0 || neighbour >= len(cols) {
		return
	}

	delta := cols[neighbour].Width
	if !right {
		delta = -delta
	}

	order := columns.DropOrder(cols, columns.DragState{ColumnID: col.ID, DeltaX: delta, Active: true})

	if _, err := m.table.Columns().Reorder(order); err != nil {
		m.message = err.Error()
		return
	}

	m.table.Editor().FocusColumn(neighbour)
}

func (m Model) View() string {

	if !m.ready {
		return "loading…"
	}

	v := m.table.Window()
	editor := m.table.Editor()

	var b strings.Builder

	b.WriteString(m.renderHeader(v))
	b.WriteString("\n")

	lines := 0
	for i, slot := range v.Rows {
		if lines >= m.bodyLines() {
			break
		}
		b.WriteString(m.renderRow(v, v.First+i, slot, editor))
		b.WriteString("\n")
		lines++
	}
	for ; lines < m.bodyLines(); lines++ {
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus(v))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func chars(c schema.Column) int {
	return max(c.Width/cellPixels, 3)
}

func (m Model) clip(line string) string {
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m Model) renderHeader(v grid.View) string {

	parts := []string{headerStyle.Render(render.Truncate("#", indexColumnChars))}

	for i, c := range v.Columns {
		label := c.Label
		if label == "" {
			label = c.Key
		}
		if v.Query.SortKey == c.Key {
			if v.Query.SortOrder == schema.Desc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}

		style := headerStyle
		if i == v.Focus.Col {
			style = focusHeaderStyle
		}
		parts = append(parts, style.Render(render.Truncate(label, chars(c))))
	}

	return m.clip(strings.Join(parts, columnSeparator))
}

func (m Model) renderRow(v grid.View, index int, slot schema.RowSlot, editor *edit.Controller) string {

	parts := []string{placeholderStyle.Render(render.Truncate(fmt.Sprint(index+1), indexColumnChars))}

	for col, c := range v.Columns {
		width := chars(c)

		if !slot.Loaded() {
			text := ""
			if slot.State == schema.Pending {
				text = pendingPlaceholder
			}
			parts = append(parts, placeholderStyle.Render(render.Truncate(text, width)))
			continue
		}

		addr := edit.Addr{Row: index, Col: col}

		var text string
		if col < len(slot.Record.Values) {
			text = render.Format(c.Type, slot.Record.Values[col])
		}

		style := lipgloss.NewStyle()

		if s := v.Session; s != nil && s.Addr == addr {
			text = s.Pending + "▏"
			style = editCellStyle
		} else if err := editor.CellError(addr); err != nil {
			text = "! " + text
			style = errorCellStyle
		} else if addr == v.Focus {
			style = focusCellStyle
		}

		parts = append(parts, style.Render(render.Truncate(text, width)))
	}

	return m.clip(strings.Join(parts, columnSeparator))
}

func (m Model) renderStatus(v grid.View) string {

	segments := []string{
		fmt.Sprintf("%d rows", v.Total),
		fmt.Sprintf("loaded %d pending %d", v.Stats.Loaded, v.Stats.Pending),
	}

	if v.Query.SortKey != "" {
		segments = append(segments, "sort "+v.Query.SortKey+" "+v.Query.SortOrder.String())
	}
	if v.Layout.Unsaved {
		segments = append(segments, "layout unsaved")
	}

	if err := m.table.Editor().CellError(v.Focus); err != nil {
		segments = append(segments, errorCellStyle.Render(err.Error()))
	}
	if m.message != "" {
		segments = append(segments, m.message)
	}

	line := statusStyle.Render(strings.Join(segments, "  ·  "))

	if v.Banner != nil {
		line = bannerStyle.Render(fmt.Sprintf("rows %s failed %d times, ^r to retry", v.Banner.Range.String(), v.Banner.Failures)) + "  " + line
	}

	return m.clip(line)
}

func (m Model) renderHelp() string {
	parts := []string{}
	for _, b := range gridKeys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.clip(helpStyle.Render(strings.Join(parts, "  ")))
}
