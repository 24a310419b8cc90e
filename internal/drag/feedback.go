package drag

import (
	"context"
	"errors"
	"time"

	"github.com/pattamap/server/internal/grid"
)

// Committer sends a move or swap to the authority. See commit.Client.
type Committer interface {
	Commit(ctx context.Context, entity grid.Entity, target grid.Position, conflict *grid.Entity) (bool, error)
}

// Notifier shows toasts.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Haptics plays a vibration pattern (on, off, on, ...). Best effort.
type Haptics interface {
	Vibrate(pattern []time.Duration)
}

var (
	patternStart   = []time.Duration{10 * time.Millisecond}
	patternSuccess = []time.Duration{20 * time.Millisecond}
	patternFailure = []time.Duration{50 * time.Millisecond, 30 * time.Millisecond, 50 * time.Millisecond}
)

const (
	msgTimeout = "Saving the position timed out. Please try again."
	msgGeneric = "Could not save the position. Please try again."
)

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

type nopHaptics struct{}

func (nopHaptics) Vibrate([]time.Duration) {}

// userMessage pulls toast text out of a commit error.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return msgGeneric
}
