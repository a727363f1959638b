package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error is a non-2xx answer from the API. Message is what the user sees.
type Error struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is an API 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Message returns the user-facing text of err: the backend message for API
// errors, err.Error() otherwise, and fallback when err is nil or blank.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// errorBody is the backend convention { message?: string, error?: string }.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// newError builds an Error from a non-2xx response. The message is taken from
// the body's message field, then its error field, then "<code> <status text>".
func newError(code int, status string, body []byte) *Error {
	statusText := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if statusText == "" {
		statusText = http.StatusText(code)
	}
	e := &Error{
		StatusCode: code,
		Status:     statusText,
		Message:    strings.TrimSpace(fmt.Sprintf("%d %s", code, statusText)),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return e
	}
	if msg := jsonString(eb.Message); msg != "" {
		e.Message = msg
	} else if msg := jsonString(eb.Error); msg != "" {
		e.Message = msg
	}
	return e
}

// jsonString returns raw as a string when it is a non-empty JSON string.
func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
