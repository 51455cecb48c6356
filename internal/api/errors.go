package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure. Every failure reported by the client
// belongs to exactly one kind.
type Kind string

const (
	// KindAuthentication means the API key is missing or invalid (401).
	KindAuthentication Kind = "authentication"
	// KindAuthorization means the key lacks permission (403).
	KindAuthorization Kind = "authorization"
	// KindNotFound means the identifier is unknown (404).
	KindNotFound Kind = "not_found"
	// KindValidation means the request was malformed or out of range (4xx).
	KindValidation Kind = "validation"
	// KindServer means a server-side failure (5xx).
	KindServer Kind = "server"
	// KindTransport means the request never completed or the payload
	// could not be decoded.
	KindTransport Kind = "transport"
)

// Error is a classified API failure. Detail carries the server's error
// message when one was decodable from the response body.
type Error struct {
	Kind       Kind
	StatusCode int
	Op         string // "METHOD path"
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fluence api: %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// IsKind reports whether err is an API error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsNotFound reports whether err is a not-found API error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsAuthFailure reports whether err is an authentication or
// authorization failure. Retrying such a request cannot succeed.
func IsAuthFailure(err error) bool {
	return IsKind(err, KindAuthentication) || IsKind(err, KindAuthorization)
}

// IsValidation reports whether err is a validation API error.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }
