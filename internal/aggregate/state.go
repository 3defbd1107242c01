package aggregate

import (
	"fmt"

	"github.com/lemmywalk/pkg/models"
)

// Status is the lifecycle position of an aggregation.
type Status int

const (
	Idle Status = iota
	Loading
	Refreshing
	Ready
	Error
)

var statusNames = map[Status]string{
	Idle:       "idle",
	Loading:    "loading",
	Refreshing: "refreshing",
	Ready:      "ready",
	Error:      "error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a consistent snapshot of a controller. Items is never mutated
// after publication; every commit installs a new slice.
type State[T models.Item] struct {
	Status     Status `json:"status"`
	Items      []T    `json:"items"`
	Err        error  `json:"-"`
	Generation uint64 `json:"generation"`
}

// InFlight reports whether a fetch cycle is running.
func (s State[T]) InFlight() bool {
	return s.Status == Loading || s.Status == Refreshing
}

// Empty reports a successful cycle that produced no items.
func (s State[T]) Empty() bool {
	return s.Status == Ready && len(s.Items) == 0
}

// Failed reports whether the last cycle ended in a fetch failure.
func (s State[T]) Failed() bool {
	return s.Status == Error
}

// ErrorMessage returns the failure text, or "" when the state is not failed.
func (s State[T]) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
