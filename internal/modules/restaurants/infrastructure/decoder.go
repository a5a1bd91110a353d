package infrastructure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"mesaYaReviews/internal/modules/restaurants/application/port"
)

const maxErrorBody = 64 << 10

var errEmptyBody = errors.New("empty response body")

// decodeJSON reads one JSON document into T and runs validate over it. Any failure is
// reported as a *port.SchemaError.
func decodeJSON[T any](operation string, body io.Reader, validate func(T) error) (T, error) {
	var zero T
	raw, err := io.ReadAll(body)
	if err != nil {
		return zero, fmt.Errorf("%w: %s: read body: %w", port.ErrTransport, operation, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, &port.SchemaError{Operation: operation, Err: errEmptyBody}
	}
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return zero, &port.SchemaError{Operation: operation, Err: err}
	}
	if validate != nil {
		if err := validate(payload); err != nil {
			return zero, &port.SchemaError{Operation: operation, Err: err}
		}
	}
	return payload, nil
}

func encodeJSON(operation string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", operation, err)
	}
	return data, nil
}
