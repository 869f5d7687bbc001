package tui

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/moralis-scan/scan/internal/cloudquery"
	"github.com/moralis-scan/scan/internal/pagination"
)

// ViewState is the browser's current screen.
type ViewState int

const (
	// ViewStateList shows the page table.
	ViewStateList ViewState = iota
	// ViewStateJump shows the jump-to-page prompt over the table.
	ViewStateJump
	// ViewStateDetail shows every field of the selected row.
	ViewStateDetail
	// ViewStateQuitting is set once the user quits.
	ViewStateQuitting
)

// Key bindings.
const (
	keyQuit     = "q"
	keyCtrlC    = "ctrl+c"
	keyEnter    = "enter"
	keyEsc      = "esc"
	keyNext     = "n"
	keyPrev     = "p"
	keyRight    = "right"
	keyLeft     = "left"
	keyPgDown   = "pgdown"
	keyPgUp     = "pgup"
	keyGrow     = "+"
	keyShrink   = "-"
	keyJump     = "g"
	keyReload   = "r"
	keyHome     = "home"
)

// Layout.
const (
	defaultWidth  = 120
	defaultHeight = 30
	chromeLines   = 7
	minHeight     = 3
	minColWidth   = 6
	maxColWidth   = 28
)

// PageSizes are the sizes cycled through with + and -.
//
//nolint:gochecknoglobals // Fixed ladder of page sizes.
var PageSizes = []int{5, 10, 25, 50, 100}

// ObjectController is the controller type the browser drives.
type ObjectController = pagination.Controller[cloudquery.Object, map[string]any]

// BrowserModel is the Bubble Tea model for paging through cloud function results.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BrowserModel struct {
	ctx   context.Context
	ctrl  *ObjectController
	state ViewState

	table    table.Model
	columns  []string
	spinner  spinner.Model
	jump     textinput.Model
	selected map[string]any
	status   string

	width   int
	height  int
	printer *message.Printer
}

// NewBrowserModel wraps ctrl. The first fetch happens in Init.
func NewBrowserModel(ctx context.Context, ctrl *ObjectController) BrowserModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = InfoStyle

	ti := textinput.New()
	ti.Placeholder = "page"
	ti.CharLimit = 9
	ti.Width = 10

	m := BrowserModel{
		ctx:     ctx,
		ctrl:    ctrl,
		state:   ViewStateList,
		spinner: sp,
		jump:    ti,
		width:   defaultWidth,
		height:  defaultHeight,
		printer: message.NewPrinter(language.English),
	}
	m.rebuildTable()
	return m
}

// NewObjectController builds the controller the browser expects, mapping
// each object through ObjectRow.
func NewObjectController(
	ctx context.Context,
	querier pagination.Querier[cloudquery.Object],
	method, subject string,
	opts pagination.Options[cloudquery.Object, map[string]any],
) *ObjectController {
	if opts.PostProcess == nil {
		opts.PostProcess = ObjectRow
	}
	return pagination.New(ctx, querier, method, subject, opts)
}

// Controller exposes the wrapped pagination controller.
func (m BrowserModel) Controller() *ObjectController {
	return m.ctrl
}

// State returns the current screen.
func (m BrowserModel) State() ViewState {
	return m.state
}

// Init issues the first page request (Bubble Tea interface).
func (m BrowserModel) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Init(), m.spinner.Tick)
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rebuildTable()
		return m, nil
	case pagination.ResponseMsg[cloudquery.Object]:
		if m.ctrl.Update(msg) {
			m.rebuildTable()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	switch m.state {
	case ViewStateJump:
		return m.handleJumpUpdate(msg)
	case ViewStateDetail:
		return m.handleDetailUpdate(msg)
	case ViewStateList:
		return m.handleListUpdate(msg)
	case ViewStateQuitting:
		return m, nil
	default:
		return m, nil
	}
}

func (m BrowserModel) handleListUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m.handleListKeypress(keyMsg)
}

func (m BrowserModel) handleListKeypress(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch keyMsg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyRight, keyNext, keyPgDown:
		return m.navigate(m.ctrl.NextPage())
	case keyLeft, keyPrev, keyPgUp:
		return m.navigate(m.ctrl.PrevPage())
	case keyHome:
		return m.navigate(m.ctrl.SetCurrPage(pagination.DefaultPage))
	case keyGrow:
		return m.resize(nextPageSize(m.ctrl.PageSize(), 1))
	case keyShrink:
		return m.resize(nextPageSize(m.ctrl.PageSize(), -1))
	case keyReload:
		return m.navigate(m.ctrl.Reload())
	case keyJump:
		m.state = ViewStateJump
		m.jump.SetValue("")
		m.jump.Focus()
		return m, textinput.Blink
	case keyEnter:
		rows := m.ctrl.Results()
		if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(rows) {
			m.selected = rows[cursor]
			m.state = ViewStateDetail
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(keyMsg)
		return m, cmd
	}
}

func (m BrowserModel) handleJumpUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyCtrlC:
			m.state = ViewStateQuitting
			return m, tea.Quit
		case keyEsc:
			m.closeJump()
			return m, nil
		case keyEnter:
			input := strings.TrimSpace(m.jump.Value())
			m.closeJump()
			page, err := strconv.Atoi(input)
			if err != nil || page < pagination.MinPage {
				m.status = "invalid page: " + input
				return m, nil
			}
			return m.navigate(m.ctrl.SetCurrPage(page))
		}
	}
	var cmd tea.Cmd
	m.jump, cmd = m.jump.Update(msg)
	return m, cmd
}

func (m BrowserModel) handleDetailUpdate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyQuit, keyCtrlC:
			m.state = ViewStateQuitting
			return m, tea.Quit
		case keyEsc, keyEnter:
			m.state = ViewStateList
			m.selected = nil
			return m, nil
		}
	}
	return m, nil
}

func (m *BrowserModel) closeJump() {
	m.state = ViewStateList
	m.jump.Blur()
}

// navigate redraws from the controller's in-flight state and hands the
// fetch command to the runtime. A nil cmd means the mutation was a no-op.
func (m BrowserModel) navigate(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if cmd != nil {
		zerolog.Ctx(m.ctx).Debug().
			Str("component", "tui").
			Int("page", m.ctrl.CurrPage()).
			Int("page_size", m.ctrl.PageSize()).
			Msg("navigating")
		m.rebuildTable()
	}
	return m, cmd
}

// resize changes the page size and returns to the first page.
func (m BrowserModel) resize(size int) (tea.Model, tea.Cmd) {
	sizeCmd := m.ctrl.SetPageSize(size)
	pageCmd := m.ctrl.SetCurrPage(pagination.DefaultPage)
	if sizeCmd == nil && pageCmd == nil {
		return m, nil
	}
	return m.navigate(tea.Batch(sizeCmd, pageCmd))
}

// nextPageSize moves one step along PageSizes from current in direction dir.
// Sizes outside the ladder snap to the nearest step in that direction.
func nextPageSize(current, dir int) int {
	if dir > 0 {
		for _, size := range PageSizes {
			if size > current {
				return size
			}
		}
		return current
	}
	for i := len(PageSizes) - 1; i >= 0; i-- {
		if PageSizes[i] < current {
			return PageSizes[i]
		}
	}
	return current
}

// rebuildTable reconstructs the table from the controller's current results.
func (m *BrowserModel) rebuildTable() {
	rows := m.ctrl.Results()
	m.columns = Columns(rows)

	widths := make([]int, len(m.columns))
	for i, col := range m.columns {
		widths[i] = max(minColWidth, len(col))
	}
	cells := make([]table.Row, len(rows))
	for r, row := range rows {
		cells[r] = make(table.Row, len(m.columns))
		for i, col := range m.columns {
			v, ok := row[col]
			text := "-"
			if ok {
				text = FormatValue(v)
			}
			widths[i] = max(widths[i], len([]rune(text)))
			cells[r][i] = text
		}
	}

	columns := make([]table.Column, len(m.columns))
	for i, col := range m.columns {
		w := min(widths[i], maxColWidth)
		columns[i] = table.Column{Title: col, Width: w}
		for r := range cells {
			cells[r][i] = truncate(cells[r][i], w)
		}
	}

	height := max(m.height-chromeLines, minHeight)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(cells),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	m.table = t
}
