package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StatusError is any non-2xx response. The engine treats every status the
// same way; Code and Message are kept for logs and the UI.
type StatusError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
}

func newStatusError(op string, resp *http.Response) *StatusError {
	se := &StatusError{Op: op, StatusCode: resp.StatusCode}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &body) == nil {
		se.Code = body.Error
		se.Message = body.Message
	}
	return se
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}
