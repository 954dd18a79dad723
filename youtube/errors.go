package youtube

import (
	"context"
	"errors"
	"strings"

	"github.com/sony/gobreaker"
)

var (
	ErrQuotaExceeded = errors.New("youtube API quota exceeded")
	ErrInvalidAPIKey = errors.New("youtube API key is invalid")
	ErrUnavailable   = errors.New("youtube API temporarily unavailable")
)

// Error is a failed API call tagged with its class. It satisfies
// errors.Is for the class sentinel and for the underlying error.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage is shown in place of the raw API error.
func (e *Error) UserMessage() string {
	switch {
	case errors.Is(e.Kind, ErrQuotaExceeded):
		return "YouTube API quota exceeded, try again tomorrow"
	case errors.Is(e.Kind, ErrInvalidAPIKey):
		return "YouTube API key is invalid, check YOUTUBE_API_KEY"
	case errors.Is(e.Kind, ErrUnavailable):
		return "YouTube is temporarily unavailable, try again shortly"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "YouTube did not respond in time, try again"
	default:
		return "Could not load competitor data from YouTube"
	}
}

// classify tags err by matching the API's error text.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var kind error
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		kind = ErrQuotaExceeded
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "keyinvalid"),
		strings.Contains(msg, "api_key_invalid"):
		kind = ErrInvalidAPIKey
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = ErrUnavailable
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
