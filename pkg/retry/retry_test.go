package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingSleep(slept *[]time.Duration) func(time.Duration) {
	return func(d time.Duration) {
		*slept = append(*slept, d)
	}
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	var slept []time.Duration
	p := Policy{Attempts: 5, Delay: 20 * time.Second}.WithSleep(recordingSleep(&slept))

	n, err := Do(p, func(attempt int) (bool, error) {
		return attempt == 3, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Duration{20 * time.Second, 20 * time.Second}, slept)
}

func TestDoExhausted(t *testing.T) {
	var slept []time.Duration
	p := Policy{Attempts: 3, Delay: time.Second}.WithSleep(recordingSleep(&slept))

	n, err := Do(p, func(int) (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, n)
	// no sleep after the last attempt
	assert.Len(t, slept, 2)
}

func TestDoFatalErrorStops(t *testing.T) {
	fatal := errors.New("port gone")
	calls := 0

	n, err := Do(Policy{Attempts: 10}.WithSleep(func(time.Duration) {}), func(int) (bool, error) {
		calls++
		return false, fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(Policy{}, func(int) (bool, error) {
		calls++
		return true, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
