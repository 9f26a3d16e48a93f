package orderclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// APIError is a non-2xx response from the order service. The backend replies
// with {"message": ..., "statusCode": ...}; message may be a string or a list.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order service: status %d", e.StatusCode)
	}
	return fmt.Sprintf("order service: status %d: %s", e.StatusCode, e.Message)
}

type errorPayload struct {
	Message    json.RawMessage `json:"message"`
	StatusCode int             `json:"statusCode"`
	Error      string          `json:"error"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.StatusCode != 0 {
			apiErr.StatusCode = payload.StatusCode
		}
		apiErr.Message = decodeMessage(payload.Message)
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Message = sanitizeMessage(apiErr.Message)
	return apiErr
}

func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.TrimSpace(strings.Join(many, "; "))
	}
	return ""
}

var messagePolicy = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
})

// sanitizeMessage strips any markup so backend text is safe to render.
func sanitizeMessage(msg string) string {
	cleaned := html.UnescapeString(messagePolicy().Sanitize(msg))
	return strings.Join(strings.Fields(cleaned), " ")
}

// MessageOf returns the backend-provided message carried by err, if any.
func MessageOf(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

// IsNotFound reports whether err is a 404 from the order service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// PublicMessage returns the text that may be shown to end users.
func (e *APIError) PublicMessage() string {
	return e.Message
}
