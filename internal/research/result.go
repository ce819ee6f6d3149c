// Package research wraps the Tavily research API behind a uniform
// request/response contract. Every operation issues exactly one provider
// call and returns a ToolResult; provider failures are classified into a
// closed error taxonomy and never propagate as panics or raw errors.
package research

import (
	"errors"
	"fmt"
)

// ToolResult is the uniform envelope returned by every research operation.
// Exactly one of Data or Error is meaningful: Success implies Error is empty,
// failure implies Data is empty.
type ToolResult struct {
	Success bool
	Data    string
	Error   string
}

func success(data string) ToolResult {
	return ToolResult{Success: true, Data: data}
}

func failure(message string) ToolResult {
	return ToolResult{Success: false, Error: message}
}

// ErrorKind classifies provider failures for the caller's retry decision.
type ErrorKind int

const (
	// KindUnexpected covers anything outside the provider's known failure
	// modes. Treated as non-retryable but logged with full detail.
	KindUnexpected ErrorKind = iota
	// KindRateLimited means the provider signaled quota exhaustion. Callers
	// should back off before retrying.
	KindRateLimited
	// KindAuthFailed means the credential is invalid or missing. Not
	// retryable without operator intervention.
	KindAuthFailed
	// KindBadRequest means the input was malformed. Not retryable without
	// changing the input.
	KindBadRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthFailed:
		return "auth_failed"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unexpected"
	}
}

// Retryable reports whether a later retry could succeed without changing
// the request. Only rate limiting qualifies, and even then only after a
// backoff.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimited
}

// Error is a classified provider failure.
type Error struct {
	Kind    ErrorKind
	Op      string // operation name, e.g. "search"
	Status  int    // HTTP status when applicable, 0 otherwise
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Op, e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
}

// Kind extracts the classification from err, defaulting to KindUnexpected.
func Kind(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnexpected
}

// classifyStatus maps the provider's distinguishable HTTP failures onto the
// closed taxonomy. 1:1 per the provider contract: quota→RateLimited,
// credential→AuthFailed, malformed input→BadRequest.
func classifyStatus(status int) ErrorKind {
	switch status {
	case 429:
		return KindRateLimited
	case 401, 403:
		return KindAuthFailed
	case 400, 422:
		return KindBadRequest
	default:
		return KindUnexpected
	}
}

// resultFromError renders a classified failure as the ToolResult the caller
// consumes. Recognized kinds keep the "<operation>: <message>" shape; anything
// unexpected is labeled as such so it stands out in agent transcripts.
func resultFromError(op string, err error) ToolResult {
	var re *Error
	if errors.As(err, &re) {
		switch re.Kind {
		case KindRateLimited:
			return failure(fmt.Sprintf("%s: rate limit exceeded, wait before retrying", op))
		case KindAuthFailed:
			return failure(fmt.Sprintf("%s: authentication failed, check the Tavily API key", op))
		case KindBadRequest:
			return failure(fmt.Sprintf("%s: bad request: %s", op, re.Message))
		default:
			return failure(fmt.Sprintf("Unexpected error in %s: %s", op, re.Message))
		}
	}
	return failure(fmt.Sprintf("Unexpected error in %s: %v", op, err))
}
