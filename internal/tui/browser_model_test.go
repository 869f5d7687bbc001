package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralis-scan/scan/internal/cloudquery"
	"github.com/moralis-scan/scan/internal/pagination"
)

// objectServer serves total records shaped like Parse objects.
type objectServer struct {
	total int
	err   error
	calls int
}

func (s *objectServer) Call(_ context.Context, _ string, params map[string]any) (json.RawMessage, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	size, _ := params[pagination.ParamPageSize].(int)
	page, _ := params[pagination.ParamPageNum].(int)

	results := []map[string]any{}
	for i := (page - 1) * size; i < page*size && i < s.total; i++ {
		results = append(results, map[string]any{
			"objectId": fmt.Sprintf("obj%03d", i),
			"value":    i,
			"hash":     fmt.Sprintf("0x%x", i),
		})
	}
	return json.Marshal(map[string]any{"results": results, "count": s.total})
}

func newTestBrowser(t *testing.T, srv *objectServer) BrowserModel {
	t.Helper()
	ctx := context.Background()
	q := cloudquery.NewQuery[cloudquery.Object](srv)
	ctrl := NewObjectController(ctx, q, "getTransactions", "0xabc", pagination.Options[cloudquery.Object, map[string]any]{})
	m := NewBrowserModel(ctx, ctrl)
	return feed(t, m, m.Init())
}

// collect runs cmd and any batched commands, returning their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// feed delivers the controller responses produced by cmd to m.
func feed(t *testing.T, m BrowserModel, cmd tea.Cmd) BrowserModel {
	t.Helper()
	for _, msg := range collect(cmd) {
		if _, ok := msg.(pagination.ResponseMsg[cloudquery.Object]); !ok {
			continue
		}
		next, _ := m.Update(msg)
		m = next.(BrowserModel)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// press sends a key and completes any fetch it starts.
func press(t *testing.T, m BrowserModel, k string) (BrowserModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	bm := next.(BrowserModel)
	return feed(t, bm, cmd), cmd
}

func TestBrowserModel_InitialPage(t *testing.T) {
	srv := &objectServer{total: 25}
	m := newTestBrowser(t, srv)

	ctrl := m.Controller()
	assert.Equal(t, ViewStateList, m.State())
	assert.False(t, ctrl.Loading())
	assert.Equal(t, 3, ctrl.TotalPages())
	assert.Equal(t, 25, ctrl.NumResults())
	assert.Len(t, ctrl.Results(), 10)
	assert.Equal(t, []string{"objectId", "hash", "value"}, m.columns)
	assert.Equal(t, "Page 1/3 · 25 results · 10 per page", m.FooterText())

	view := m.View()
	assert.Contains(t, view, "getTransactions")
	assert.Contains(t, view, "obj000")
	assert.Contains(t, view, "Page 1/3")
}

func TestBrowserModel_NextPrev(t *testing.T) {
	srv := &objectServer{total: 25}
	m := newTestBrowser(t, srv)

	for _, k := range []string{"right", "n", "pgdown"} {
		t.Run(k, func(t *testing.T) {
			mm := newTestBrowser(t, srv)
			mm, cmd := press(t, mm, k)
			require.NotNil(t, cmd)
			assert.Equal(t, 2, mm.Controller().CurrPage())
			assert.Contains(t, mm.View(), "obj010")
		})
	}

	m, _ = press(t, m, "right")
	m, _ = press(t, m, "right")
	assert.Equal(t, 3, m.Controller().CurrPage())
	assert.Len(t, m.Controller().Results(), 5)

	m, cmd := press(t, m, "right")
	assert.Nil(t, cmd, "next on the last page is a no-op")
	assert.Equal(t, 3, m.Controller().CurrPage())

	for _, k := range []string{"left", "p"} {
		m, _ = press(t, m, k)
	}
	assert.Equal(t, 1, m.Controller().CurrPage())

	m, cmd = press(t, m, "pgup")
	assert.Nil(t, cmd, "prev on the first page is a no-op")
	assert.Equal(t, 1, m.Controller().CurrPage())
}

func TestBrowserModel_PageSizeResetsToFirstPage(t *testing.T) {
	srv := &objectServer{total: 100}
	m := newTestBrowser(t, srv)

	m, _ = press(t, m, "n")
	m, _ = press(t, m, "n")
	require.Equal(t, 3, m.Controller().CurrPage())

	before := srv.calls
	m, cmd := press(t, m, "+")
	require.NotNil(t, cmd)
	assert.Equal(t, before+1, srv.calls, "resize away from page 1 issues a single request")
	ctrl := m.Controller()
	assert.Equal(t, 25, ctrl.PageSize())
	assert.Equal(t, 1, ctrl.CurrPage())
	assert.Equal(t, 4, ctrl.TotalPages())
	assert.Len(t, ctrl.Results(), 25)
	assert.Equal(t, "obj000", ctrl.Results()[0][KeyObjectID])

	m, _ = press(t, m, "-")
	m, _ = press(t, m, "-")
	assert.Equal(t, 5, m.Controller().PageSize())
	assert.Equal(t, 20, m.Controller().TotalPages())

	m, cmd = press(t, m, "-")
	assert.Nil(t, cmd, "smallest size reached")
	assert.Equal(t, 5, m.Controller().PageSize())
}

func TestBrowserModel_JumpToPage(t *testing.T) {
	srv := &objectServer{total: 100}
	m := newTestBrowser(t, srv)

	m, _ = press(t, m, "g")
	require.Equal(t, ViewStateJump, m.State())
	assert.Contains(t, m.View(), "Go to page")

	m, _ = press(t, m, "7")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, ViewStateList, m.State())
	assert.Equal(t, 7, m.Controller().CurrPage())
	assert.Contains(t, m.View(), "obj060")
}

func TestBrowserModel_JumpRejectsInvalidInput(t *testing.T) {
	srv := &objectServer{total: 100}

	for _, input := range []string{"abc", "0", ""} {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			m := newTestBrowser(t, srv)
			m, _ = press(t, m, "g")
			if input != "" {
				m, _ = press(t, m, input)
			}
			m, cmd := press(t, m, "enter")
			assert.Nil(t, cmd)
			assert.Equal(t, 1, m.Controller().CurrPage())
			assert.Contains(t, m.View(), "invalid page")
		})
	}
}

func TestBrowserModel_JumpEscCancels(t *testing.T) {
	m := newTestBrowser(t, &objectServer{total: 100})
	m, _ = press(t, m, "g")
	m, _ = press(t, m, "5")
	m, cmd := press(t, m, "esc")
	assert.Nil(t, cmd)
	assert.Equal(t, ViewStateList, m.State())
	assert.Equal(t, 1, m.Controller().CurrPage())
}

func TestBrowserModel_Reload(t *testing.T) {
	srv := &objectServer{total: 15}
	m := newTestBrowser(t, srv)
	before := srv.calls

	_, cmd := press(t, m, "r")
	require.NotNil(t, cmd)
	assert.Equal(t, before+1, srv.calls)
}

func TestBrowserModel_Error(t *testing.T) {
	srv := &objectServer{err: errors.New("boom")}
	m := newTestBrowser(t, srv)

	require.Error(t, m.Controller().Err())
	view := m.View()
	assert.Contains(t, view, "Error:")
	assert.Contains(t, view, "boom")
	assert.Contains(t, view, "No results.")
	assert.Equal(t, "Page 1/1 · 0 results · 10 per page", m.FooterText())
}

func TestBrowserModel_Detail(t *testing.T) {
	m := newTestBrowser(t, &objectServer{total: 3})

	m, _ = press(t, m, "enter")
	require.Equal(t, ViewStateDetail, m.State())
	view := m.View()
	assert.Contains(t, view, "RECORD DETAIL")
	assert.Contains(t, view, "obj000")

	m, _ = press(t, m, "esc")
	assert.Equal(t, ViewStateList, m.State())
}

func TestBrowserModel_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newTestBrowser(t, &objectServer{total: 3})
			next, cmd := m.Update(key(k))
			require.NotNil(t, cmd)
			assert.Equal(t, ViewStateQuitting, next.(BrowserModel).State())
			assert.Empty(t, next.View())
		})
	}
}

func TestBrowserModel_WindowResize(t *testing.T) {
	m := newTestBrowser(t, &objectServer{total: 3})
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Nil(t, cmd)
	bm := next.(BrowserModel)
	assert.Equal(t, 80, bm.width)
	assert.Equal(t, 20, bm.height)
	assert.Contains(t, bm.View(), "obj002")
}

func TestBrowserModel_LoadingSnapshot(t *testing.T) {
	m := newTestBrowser(t, &objectServer{total: 30})

	next, cmd := m.Update(key("n"))
	require.NotNil(t, cmd)
	bm := next.(BrowserModel)
	assert.True(t, bm.Controller().Loading())
	assert.Equal(t, 2, bm.Controller().CurrPage())
	assert.Contains(t, bm.View(), "obj000", "previous rows stay visible while loading")

	bm = feed(t, bm, cmd)
	assert.False(t, bm.Controller().Loading())
	assert.Contains(t, bm.View(), "obj010")
}

func TestBrowserModel_FooterGroupsThousands(t *testing.T) {
	m := newTestBrowser(t, &objectServer{total: 12345})
	assert.Equal(t, "Page 1/1,235 · 12,345 results · 10 per page", m.FooterText())
}

func TestNextPageSize(t *testing.T) {
	tests := []struct {
		current, dir, want int
	}{
		{10, 1, 25},
		{10, -1, 5},
		{5, -1, 5},
		{100, 1, 100},
		{12, 1, 25},
		{12, -1, 10},
		{500, -1, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPageSize(tt.current, tt.dir), "current=%d dir=%d", tt.current, tt.dir)
	}
}

func TestColumns(t *testing.T) {
	rows := []map[string]any{
		{"value": 1, "objectId": "a"},
		{"block": 2, "value": 3},
	}
	assert.Equal(t, []string{"objectId", "block", "value"}, Columns(rows))
	assert.Empty(t, Columns(nil))
	assert.Equal(t, []string{"a", "b"}, Columns([]map[string]any{{"b": 1, "a": 2}}))
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2021, 7, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"0xabc", "0xabc"},
		{true, "true"},
		{float64(42), "42"},
		{1.5, "1.5"},
		{7, "7"},
		{ts, "2021-07-01T12:00:00Z"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{"x", 2}, `["x",2]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "0x12345...", truncate("0x123456789abcdef", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestObjectRow(t *testing.T) {
	created := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)
	row := ObjectRow(cloudquery.Object{
		ObjectID:   "abc",
		CreatedAt:  created,
		Attributes: map[string]any{"value": 1.0},
	})
	assert.Equal(t, map[string]any{"objectId": "abc", "createdAt": created, "value": 1.0}, row)

	bare := ObjectRow(cloudquery.Object{Attributes: map[string]any{"x": "y"}})
	assert.Equal(t, map[string]any{"x": "y"}, bare)
}
