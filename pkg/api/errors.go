package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures surfaced to controllers.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuthExpired Kind = "auth_expired"
	KindNetwork     Kind = "network"
	KindServer      Kind = "server"
	KindMediaPolicy Kind = "media_policy"
)

// notAuthorized is the body message the backend sends for rejected tokens.
const notAuthorized = "Not Authorized"

// DefaultErrorMessage is shown when an error body carries no message.
const DefaultErrorMessage = "An error occurred."

// Error is the typed failure returned by every client operation.
type Error struct {
	Kind      Kind
	Operation string
	Status    int
	Message   string
	// Fields holds per-field messages keyed by the path the backend reported.
	Fields map[string][]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	if e.Operation != "" {
		b.WriteString(e.Operation)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorKind reports the failure class.
func (e *Error) ErrorKind() Kind {
	return e.Kind
}

type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the Kind carried by err, or "" when err has none.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ""
}

// IsAuthExpired reports whether err means the session token was rejected.
func IsAuthExpired(err error) bool {
	return KindOf(err) == KindAuthExpired
}

// MessageOf returns the user-facing message of a typed error.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return ""
}

type errorItem struct {
	Msg   string `json:"msg"`
	Path  string `json:"path"`
	Param string `json:"param"`
}

type errorBody struct {
	Success *bool       `json:"success"`
	Message string      `json:"message"`
	Errors  []errorItem `json:"errors"`
}

// classify turns a non-2xx response into an Error.
func classify(op string, status int, body []byte) *Error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	apiErr := &Error{Operation: op, Status: status}
	if status == http.StatusUnauthorized || parsed.Message == notAuthorized {
		apiErr.Kind = KindAuthExpired
		apiErr.Message = notAuthorized
		return apiErr
	}

	switch {
	case len(parsed.Errors) > 0 && parsed.Errors[0].Msg != "":
		apiErr.Message = parsed.Errors[0].Msg
	case parsed.Message != "":
		apiErr.Message = parsed.Message
	default:
		apiErr.Message = DefaultErrorMessage
	}

	for _, item := range parsed.Errors {
		path := item.Path
		if path == "" {
			path = item.Param
		}
		if path == "" || item.Msg == "" {
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[path] = append(apiErr.Fields[path], item.Msg)
	}

	if status >= 500 {
		apiErr.Kind = KindServer
	} else {
		apiErr.Kind = KindValidation
	}
	return apiErr
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Operation: op, Err: err}
}
