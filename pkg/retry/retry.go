// Package retry provides the bounded "attempt, wait, attempt again" loop every modem
// stage uses.
package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt ran without success
var ErrExhausted = errors.New("attempts exhausted")

// Policy describes how often and how far apart an operation is attempted
type Policy struct {
	Attempts int
	Delay    time.Duration

	// Sleep replaces time.Sleep, tests use it to skip the waits
	Sleep func(time.Duration)
}

// Once is the policy for stages that must not be retried
var Once = Policy{Attempts: 1}

// Func is a single attempt. It returns true on success, a non-nil error aborts
// the loop without further attempts.
type Func func(attempt int) (bool, error)

func (p Policy) sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

// WithSleep returns a copy of the policy using the given sleep function
func (p Policy) WithSleep(sleep func(time.Duration)) Policy {
	p.Sleep = sleep
	return p
}

// Do runs fn until it succeeds, fails fatally or the attempts run out.
// It returns the number of attempts made. The delay is only applied between attempts.
func Do(p Policy, fn Func) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := fn(attempt)
		if err != nil {
			return attempt, err
		}

		if ok {
			return attempt, nil
		}

		if attempt < attempts {
			p.sleep(p.Delay)
		}
	}

	return attempts, fmt.Errorf("%w after %d tries", ErrExhausted, attempts)
}
