package commit

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed commit for the user-facing message.
type Kind int

const (
	KindGeneric    Kind = iota
	KindBounds          // target outside the zone grid (local or server-reported)
	KindConstraint      // server refused: cell taken / uniqueness constraint
	KindInvalid         // 400 without a more specific match
	KindServer          // 500
	KindNetwork         // transport failure, no HTTP response
	KindTimeout         // request context cancelled or deadline exceeded
)

func (k Kind) String() string {
	switch k {
	case KindBounds:
		return "bounds"
	case KindConstraint:
		return "constraint"
	case KindInvalid:
		return "invalid"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "generic"
	}
}

// Error is returned by Client.Commit when a move or swap did not go through.
// Optimistic positions have already been rolled back when it is returned.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, 0 when no response was received
	Body   string // raw response body, possibly truncated
	Err    error  // underlying transport error, if any
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("commit %s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("commit %s: status %d: %s", e.Kind, e.Status, e.Body)
	default:
		return fmt.Sprintf("commit %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the toast text for the failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindBounds:
		return "Position is outside the grid for this zone."
	case KindConstraint:
		return "That spot was just taken. Refresh the map and try again."
	case KindInvalid:
		return "Invalid position."
	case KindServer:
		return "Server error while saving the position. Please try again."
	case KindNetwork:
		return "Network error. Check your connection and try again."
	case KindTimeout:
		return "Saving the position timed out. Please try again."
	default:
		return "Could not save the position. Please try again."
	}
}

// classify maps a non-2xx response to a Kind. Known body substrings take precedence
// over the status code.
func classify(status int, body string) Kind {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "out of bounds"):
		return KindBounds
	case strings.Contains(lower, "constraint"):
		return KindConstraint
	}
	switch status {
	case http.StatusBadRequest:
		return KindInvalid
	case http.StatusInternalServerError:
		return KindServer
	default:
		return KindGeneric
	}
}
