package propertyapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorKind categorizes backend failures.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindPaymentRequired ErrorKind = "payment_required"
	KindNotFound        ErrorKind = "not_found"
	KindApplication     ErrorKind = "application"
)

// Error is returned for every failed backend call.
type Error struct {
	Op      string
	Kind    ErrorKind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("propertyapi: %s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("propertyapi: %s: %s", e.Op, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of a propertyapi error found in err's chain, or ""
// when err did not come from the backend client.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsPaymentRequired reports whether err is a 402 (quota exhausted).
func IsPaymentRequired(err error) bool { return KindOf(err) == KindPaymentRequired }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// Message returns the user-facing text for err, falling back to fallback
// when err carries no backend message.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func newStatusError(op string, status int, body []byte) *Error {
	kind := KindApplication
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusPaymentRequired:
		kind = KindPaymentRequired
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{
		Op:      op,
		Kind:    kind,
		Status:  status,
		Message: extractMessage(status, body),
	}
}

// extractMessage pulls the backend's error text out of the common shapes:
// {"detail": "..."}, FastAPI validation {"detail": [{"msg": "..."}]},
// {"message": "..."} and {"error": "..."}.
func extractMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		detail := res.Get("detail")
		if detail.IsArray() {
			var msgs []string
			detail.ForEach(func(_, v gjson.Result) bool {
				if m := v.Get("msg").String(); m != "" {
					msgs = append(msgs, m)
				}
				return true
			})
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		for _, key := range []string{"detail", "message", "error"} {
			if v := res.Get(key); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return strings.TrimSpace(v.Str)
			}
		}
	}
	return fallbackMessage(status)
}

func fallbackMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusPaymentRequired:
		return "analysis limit reached, upgrade your plan to continue"
	case http.StatusNotFound:
		return "not found"
	}
	if status >= 500 {
		return "server error, please try again later"
	}
	return fmt.Sprintf("request failed with status %d", status)
}
