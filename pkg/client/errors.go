package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors for client operations
var (
	// ErrNotFound indicates the requested policy does not exist
	ErrNotFound = errors.New("policy not found")

	// ErrUnavailable indicates the policy service is unreachable
	ErrUnavailable = errors.New("policy service unavailable")

	// ErrClientInternal indicates an internal error occurred in the client
	ErrClientInternal = errors.New("client internal error")
)

// APIError is a non-2xx response from the service. Message is a
// best-effort extraction from the body; when nothing usable is found it
// falls back to "code: <status>".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// errorFromResponse turns a non-2xx response into an error. 404 maps to
// ErrNotFound; anything else becomes an APIError with the message pulled
// from the body's msg/title/detail fields.
func errorFromResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	message := fmt.Sprintf("code: %d", resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Msg    string  `json:"msg"`
		Title  string  `json:"title"`
		Detail *string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Msg != "":
			message = parsed.Msg
		case parsed.Detail != nil && *parsed.Detail != "":
			message = *parsed.Detail
		case parsed.Title != "":
			message = parsed.Title
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
