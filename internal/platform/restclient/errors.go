package restclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// APIError is a non-2xx response. Detail is the service's own message.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error returns Detail verbatim so it can be shown to the user as-is.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return "request failed"
}

// StatusCode returns the HTTP status of an *APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 or 403 from the service.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// parseDetail extracts "detail" from an error body. Validation errors arrive as a list of
// {"msg": ...} objects and are joined; anything unparseable yields "".
func parseDetail(raw []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return envelope.Message
}
