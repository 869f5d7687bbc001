package cloudquery

import (
	"context"
	"encoding/json"
)

// Caller invokes a cloud function and returns its raw result.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, method string, params map[string]any) (json.RawMessage, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	return f(ctx, method, params)
}
