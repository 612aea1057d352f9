package marketplace

import "fmt"

// ErrorKind classifies marketplace API failures. The engine only logs
// the distinction; the rate limiter keeps most rate-limit responses
// from happening in the first place.
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindGeneric     ErrorKind = "generic"
)

// APIError is a structured failure from the marketplace REST API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API error (%s): %d - %s", e.Kind, e.StatusCode, e.Body)
}

func classify(statusCode int) ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrKindAuth
	case statusCode == 429:
		return ErrKindRateLimited
	default:
		return ErrKindGeneric
	}
}
