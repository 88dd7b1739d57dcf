package misc

import (
	"fmt"
	"time"
)

// TimedOutError reports what was awaited and for how long
type TimedOutError struct {
	Waiting string
	After   time.Duration
}

func (t *TimedOutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %s", t.Waiting, t.After)
}

// Is matches any TimedOutError regardless of its fields
func (t *TimedOutError) Is(e error) bool {
	_, ok := e.(*TimedOutError)
	return ok
}

func NewTimedOutError(waiting string, after time.Duration) error {
	return &TimedOutError{Waiting: waiting, After: after}
}
