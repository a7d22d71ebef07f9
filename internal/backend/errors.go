package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable wraps transport failures (DNS, refused connections, timeouts).
var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (status %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// NotFound reports whether the backend answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseAPIError reads {"message": "...", "code": "..."} style bodies. The message field may
// be a string or a list of strings; plain-text bodies are kept verbatim.
func parseAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Code    string          `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
	} else {
		apiErr.Code = body.Code
		apiErr.Message = flattenMessage(body.Message)
		if apiErr.Message == "" {
			apiErr.Message = flattenMessage(body.Error)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func flattenMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return strings.TrimSpace(string(raw))
}

// HTTPStatus picks the status the portal answers with when a backend call fails.
func HTTPStatus(err error) int {
	if IsUnavailable(err) {
		return http.StatusServiceUnavailable
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		return http.StatusBadGateway
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict:
		return apiErr.Status
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
