package pagination

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/moralis-scan/scan/internal/cloudquery"
)

// Defaults for a new controller and the cloud-function parameter names.
const (
	DefaultPageSize     = 10
	DefaultPage         = 1
	MinPage             = 1
	DefaultSubjectParam = "userAddress"
	ParamPageSize       = "pageSize"
	ParamPageNum        = "pageNum"
)

// Querier is the collaborator that executes paged calls. *cloudquery.Query satisfies it.
type Querier[R any] interface {
	Begin(method string, opts cloudquery.Options) (cloudquery.Ticket, cloudquery.Response[R])
	Do(ctx context.Context, t cloudquery.Ticket) (cloudquery.Response[R], bool)
}

// Request is the page request derived from controller state.
type Request struct {
	SubjectID string
	PageSize  int
	PageNum   int
}

// Params returns the cloud-function parameters, naming the subject subjectParam.
func (r Request) Params(subjectParam string) map[string]any {
	return map[string]any{
		subjectParam:  r.SubjectID,
		ParamPageSize: r.PageSize,
		ParamPageNum:  r.PageNum,
	}
}

// State is a snapshot of the controller.
type State[T any] struct {
	PageSize   int
	CurrPage   int
	TotalPages int
	NumResults int
	Results    []T
	Loading    bool
	Err        error
}

// Options configure a Controller.
type Options[R, T any] struct {
	// PostProcess maps each raw record to the item exposed in Results.
	// When nil, records are passed through if R and T are the same type.
	PostProcess func(R) T

	// PageSize is the initial page size. Defaults to DefaultPageSize.
	PageSize int

	// SubjectParam names the subject parameter. Defaults to DefaultSubjectParam.
	SubjectParam string

	// CountName names the count field in the result. Defaults to "count".
	CountName string
}

// ResponseMsg carries a collaborator response back to the controller that asked for it.
type ResponseMsg[R any] struct {
	controller uint64
	Request    Request
	Response   cloudquery.Response[R]
}

//nolint:gochecknoglobals // Distinguishes responses when several controllers share a program.
var controllerSeq atomic.Uint64

// Controller tracks page state for one cloud function and subject.
type Controller[R, T any] struct {
	id      uint64
	ctx     context.Context
	querier Querier[R]
	method  string
	subject string
	opts    Options[R, T]

	pageSize   int
	currPage   int
	totalPages int
	numResults int

	results []T
	mapped  *cloudquery.Page[R]
	loading bool
	err     error
}

// New creates a controller. No request is made until Init.
// ctx bounds every query and carries the logger (see zerolog.Ctx).
func New[R, T any](
	ctx context.Context,
	querier Querier[R],
	method, subjectID string,
	opts Options[R, T],
) *Controller[R, T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.SubjectParam == "" {
		opts.SubjectParam = DefaultSubjectParam
	}
	if opts.CountName == "" {
		opts.CountName = cloudquery.DefaultCountName
	}

	return &Controller[R, T]{
		id:         controllerSeq.Add(1),
		ctx:        ctx,
		querier:    querier,
		method:     method,
		subject:    subjectID,
		opts:       opts,
		pageSize:   opts.PageSize,
		currPage:   DefaultPage,
		totalPages: MinPage,
		results:    []T{},
	}
}

// Attributes unwraps a Parse object to its attribute map.
func Attributes(o cloudquery.Object) map[string]any {
	return o.Attributes
}

// NewObjects creates a controller over Parse objects exposing their attributes.
func NewObjects(
	ctx context.Context,
	querier Querier[cloudquery.Object],
	method, subjectID string,
) *Controller[cloudquery.Object, map[string]any] {
	return New(ctx, querier, method, subjectID, Options[cloudquery.Object, map[string]any]{
		PostProcess: Attributes,
	})
}

// Init issues the request for the initial state.
func (c *Controller[R, T]) Init() tea.Cmd {
	return c.issue(false)
}

// Reload re-issues the current request, bypassing any collaborator cache.
func (c *Controller[R, T]) Reload() tea.Cmd {
	return c.issue(true)
}

// SetPageSize changes the page size. The current page is left as is;
// callers that want to return to the first page must do so themselves.
func (c *Controller[R, T]) SetPageSize(n int) tea.Cmd {
	if n == c.pageSize {
		return nil
	}
	c.pageSize = n
	return c.issue(false)
}

// SetCurrPage jumps to page n without bounds checks.
func (c *Controller[R, T]) SetCurrPage(n int) tea.Cmd {
	if n == c.currPage {
		return nil
	}
	c.currPage = n
	return c.issue(false)
}

// SetSubject switches the subject the query is scoped to.
func (c *Controller[R, T]) SetSubject(subjectID string) tea.Cmd {
	if subjectID == c.subject {
		return nil
	}
	c.subject = subjectID
	return c.issue(false)
}

// NextPage advances one page unless already on the last page.
func (c *Controller[R, T]) NextPage() tea.Cmd {
	if c.currPage >= c.totalPages {
		return nil
	}
	c.currPage++
	return c.issue(false)
}

// PrevPage goes back one page unless already on the first page.
func (c *Controller[R, T]) PrevPage() tea.Cmd {
	if c.currPage <= MinPage {
		return nil
	}
	c.currPage--
	return c.issue(false)
}

// Update applies a ResponseMsg issued by this controller and reports
// whether msg was consumed.
func (c *Controller[R, T]) Update(msg tea.Msg) bool {
	resp, ok := msg.(ResponseMsg[R])
	if !ok || resp.controller != c.id {
		return false
	}
	c.apply(resp.Response)
	return true
}

// Request returns the request for the current state.
func (c *Controller[R, T]) Request() Request {
	return Request{SubjectID: c.subject, PageSize: c.pageSize, PageNum: c.currPage}
}

// Method returns the cloud function name.
func (c *Controller[R, T]) Method() string { return c.method }

// Subject returns the subject identifier.
func (c *Controller[R, T]) Subject() string { return c.subject }

// PageSize returns the page size.
func (c *Controller[R, T]) PageSize() int { return c.pageSize }

// CurrPage returns the current page number.
func (c *Controller[R, T]) CurrPage() int { return c.currPage }

// TotalPages returns the derived page count.
func (c *Controller[R, T]) TotalPages() int { return c.totalPages }

// NumResults returns the derived record count.
func (c *Controller[R, T]) NumResults() int { return c.numResults }

// Results returns the post-processed records of the latest response.
func (c *Controller[R, T]) Results() []T { return c.results }

// Loading mirrors the collaborator's loading flag.
func (c *Controller[R, T]) Loading() bool { return c.loading }

// Err mirrors the collaborator's error.
func (c *Controller[R, T]) Err() error { return c.err }

// State returns a snapshot of all fields.
func (c *Controller[R, T]) State() State[T] {
	return State[T]{
		PageSize:   c.pageSize,
		CurrPage:   c.currPage,
		TotalPages: c.totalPages,
		NumResults: c.numResults,
		Results:    c.results,
		Loading:    c.loading,
		Err:        c.err,
	}
}

// Meta returns page metadata for display.
func (c *Controller[R, T]) Meta() Meta {
	return Meta{
		CurrentPage: c.currPage,
		PageSize:    c.pageSize,
		TotalPages:  c.totalPages,
		TotalItems:  c.numResults,
		HasPrevious: c.currPage > MinPage,
		HasNext:     c.currPage < c.totalPages,
	}
}

// issue hands the current request to the collaborator, applies its
// in-flight snapshot and returns the command that completes the call.
func (c *Controller[R, T]) issue(skipCache bool) tea.Cmd {
	req := c.Request()
	ticket, snapshot := c.querier.Begin(c.method, cloudquery.Options{
		Params:        req.Params(c.opts.SubjectParam),
		IncludesCount: true,
		CountName:     c.opts.CountName,
		SkipCache:     skipCache,
	})
	c.apply(snapshot)

	zerolog.Ctx(c.ctx).Debug().
		Str("component", "pagination").
		Str("function", c.method).
		Str("subject", req.SubjectID).
		Int("page", req.PageNum).
		Int("page_size", req.PageSize).
		Str("trace_id", ticket.TraceID()).
		Msg("page requested")

	ctx, querier, id := c.ctx, c.querier, c.id
	return func() tea.Msg {
		resp, ok := querier.Do(ctx, ticket)
		if !ok {
			return nil
		}
		return ResponseMsg[R]{controller: id, Request: req, Response: resp}
	}
}

// apply recomputes derived state from a collaborator response. Without
// data the derived fields keep their previous values.
func (c *Controller[R, T]) apply(resp cloudquery.Response[R]) {
	c.loading = resp.Loading
	c.err = resp.Err

	data := resp.Data
	if data == nil {
		return
	}

	if data.Count != nil {
		c.numResults = max(*data.Count, 0)
		c.totalPages = TotalPages(c.numResults, c.pageSize)
	}

	if data != c.mapped {
		c.results = c.postProcess(data.Results)
		c.mapped = data
	}
}

func (c *Controller[R, T]) postProcess(records []R) []T {
	out := make([]T, len(records))
	for i, r := range records {
		if c.opts.PostProcess != nil {
			out[i] = c.opts.PostProcess(r)
			continue
		}
		if v, ok := any(r).(T); ok {
			out[i] = v
		}
	}
	return out
}
