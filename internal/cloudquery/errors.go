package cloudquery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyMethod is returned when a call is made without a function name.
var ErrEmptyMethod = errors.New("cloud function name is required")

// CallError is a non-success response from the server.
type CallError struct {
	StatusCode int
	// Code is the Parse error code from the body, when present.
	Code    int
	Message string
	Body    string
}

func (e *CallError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.Code != 0 {
		return fmt.Sprintf("cloud function %d (code %d): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("cloud function %d: %s", e.StatusCode, msg)
}

// Retryable reports whether the status is worth retrying.
func (e *CallError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode/100 == 5
}

// parseCallError decodes a Parse error envelope {"code": 141, "error": "..."}.
func parseCallError(status int, body []byte) *CallError {
	ce := &CallError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	var env struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		ce.Code = env.Code
		ce.Message = env.Error
	}
	if ce.Message == "" {
		ce.Message = http.StatusText(status)
	}
	return ce
}
