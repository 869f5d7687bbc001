package cloudquery

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultCountName is the result field carrying the total record count.
const DefaultCountName = "count"

// Options describe one paged cloud-function call.
type Options struct {
	Params map[string]any

	// IncludesCount means the result is an object whose CountName field holds
	// the total number of matching records, independent of page size.
	IncludesCount bool
	CountName     string

	// SkipCache forces a round trip; the fresh result still refreshes the cache.
	SkipCache bool
}

func (o Options) countName() string {
	if o.CountName == "" {
		return DefaultCountName
	}
	return o.CountName
}

// Page is one decoded cloud-function result.
type Page[R any] struct {
	Results []R
	// Count is nil when the result did not report a total.
	Count *int
}

// Response is what a consumer observes of a query: the latest data, whether
// a call is in flight, and the error of the last call.
type Response[R any] struct {
	Data    *Page[R]
	Loading bool
	Err     error
}

// DecodePage decodes a raw result. Accepted shapes are
// {"results": [...], "<countName>": n} and, without IncludesCount, a bare array.
// A null or empty result decodes to an empty page without a count.
func DecodePage[R any](raw json.RawMessage, opts Options) (*Page[R], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &Page[R]{Results: []R{}}, nil
	}

	if trimmed[0] == '[' {
		var results []R
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		return &Page[R]{Results: results}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decode result object: %w", err)
	}

	page := &Page[R]{Results: []R{}}
	if rawResults, ok := fields["results"]; ok && !isNull(rawResults) {
		if err := json.Unmarshal(rawResults, &page.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}

	if opts.IncludesCount {
		name := opts.countName()
		if rawCount, ok := fields[name]; ok && !isNull(rawCount) {
			var count int
			if err := json.Unmarshal(rawCount, &count); err != nil {
				return nil, fmt.Errorf("decode %s: %w", name, err)
			}
			page.Count = &count
		}
	}

	return page, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
