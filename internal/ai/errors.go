package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned before any request is made without a key.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is missing")

// ErrorKind groups Gemini failures by what the caller can do about them.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuth
	KindRateLimited
	KindQuota
	KindModelNotFound
	KindBadRequest
	KindServer
	KindUnreachable
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "api error",
	KindAuth:          "authentication failed",
	KindRateLimited:   "rate limited",
	KindQuota:         "quota exceeded",
	KindModelNotFound: "model not found",
	KindBadRequest:    "bad request",
	KindServer:        "gemini unavailable",
	KindUnreachable:   "gemini unreachable",
}

func (k ErrorKind) String() string { return kindNames[k] }

// GeminiError is a failed generateContent call. Status is the google.rpc
// status string from the error body, e.g. RESOURCE_EXHAUSTED.
type GeminiError struct {
	Kind       ErrorKind
	HTTPStatus int
	Status     string
	Message    string
	RequestID  string
	RetryAfter time.Duration
	Err        error
}

func (e *GeminiError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		fmt.Fprintf(&b, " (retry in %s)", e.RetryAfter.Round(time.Second))
	}
	b.WriteString(":")
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " http=%d", e.HTTPStatus)
	}
	if e.Status != "" {
		b.WriteString(" status=" + e.Status)
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=" + e.RequestID)
	}
	if e.Message != "" {
		b.WriteString(" " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(" " + e.Err.Error())
	}
	return b.String()
}

func (e *GeminiError) Unwrap() error { return e.Err }

// Temporary reports whether the same request may succeed later.
func (e *GeminiError) Temporary() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindUnreachable:
		return true
	}
	return false
}

// KindOf returns the kind of the first GeminiError in err's chain.
func KindOf(err error) ErrorKind {
	var ge *GeminiError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// classify sets e.Kind from the rpc status, falling back to the HTTP code.
func (e *GeminiError) classify() {
	mentions := func(words ...string) bool {
		msg := strings.ToLower(e.Message)
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}

	switch e.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		e.Kind = KindAuth
	case "RESOURCE_EXHAUSTED":
		e.Kind = KindRateLimited
		if mentions("quota", "billing") {
			e.Kind = KindQuota
		}
	case "NOT_FOUND":
		if mentions("model") {
			e.Kind = KindModelNotFound
		}
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "OUT_OF_RANGE":
		// Gemini reports a bad key as 400 API_KEY_INVALID.
		e.Kind = KindBadRequest
		if mentions("api key") {
			e.Kind = KindAuth
		}
	case "INTERNAL", "UNAVAILABLE", "DEADLINE_EXCEEDED":
		e.Kind = KindServer
	}
	if e.Kind != KindUnknown {
		return
	}

	switch sc := e.HTTPStatus; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		e.Kind = KindAuth
	case sc == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case sc == http.StatusNotFound && mentions("model"):
		e.Kind = KindModelNotFound
	case sc == http.StatusBadRequest:
		e.Kind = KindBadRequest
	case sc >= 500:
		e.Kind = KindServer
	}
}
