package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gamekit/core"
)

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps server error codes onto core sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "user_not_found":
		return core.ErrUserNotFound
	case "invalid_range":
		return core.ErrInvalidRange
	}
	return nil
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
