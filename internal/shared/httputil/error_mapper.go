package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrorBody is the error payload exchanged with the review API: {"status": 404, "message": "..."}.
type ErrorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ParseErrorBody extracts the server message from an error payload. Bodies that are not
// JSON error objects fall back to the trimmed raw text.
func ParseErrorBody(raw []byte) ErrorBody {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ErrorBody{}
	}
	var body ErrorBody
	if err := json.Unmarshal([]byte(trimmed), &body); err == nil && (body.Message != "" || body.Status != 0) {
		body.Message = strings.TrimSpace(body.Message)
		return body
	}
	return ErrorBody{Message: trimmed}
}

// HTTPErrorInfo contains the HTTP status code and message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

// Body converts the mapped info into the wire error payload.
func (i HTTPErrorInfo) Body() ErrorBody {
	return ErrorBody{Status: i.Status, Message: i.Message}
}

// ErrorMapping represents a single error to HTTP status/message mapping. An empty Message
// means the error text itself is the message (used for validation errors).
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// ErrorMapper maps domain errors to HTTP status codes and messages.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

// NewErrorMapper creates a new ErrorMapper with default settings.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		mappings:       make([]ErrorMapping, 0),
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "An unexpected error occurred",
	}
}

// WithMapping adds an error mapping to the mapper.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{
		Error:   err,
		Status:  status,
		Message: message,
	})
	return m
}

// WithDefault sets the default status and message for unmatched errors.
func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map converts an error to HTTP status and message.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK, Message: ""}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}

	for _, mapping := range m.mappings {
		if errors.Is(err, mapping.Error) {
			message := mapping.Message
			if message == "" {
				message = err.Error()
			}
			return HTTPErrorInfo{Status: mapping.Status, Message: message}
		}
	}

	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}
