package misc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldAt(t *testing.T) {
	fields := []string{` 1`, `"iot.1nce.net"`, ``}

	assert.Equal(t, "1", FieldAt(fields, 0))
	assert.Equal(t, "iot.1nce.net", FieldAt(fields, 1))
	assert.Equal(t, Unknown, FieldAt(fields, 2))
	assert.Equal(t, Unknown, FieldAt(fields, 7))
}

func TestAtoi(t *testing.T) {
	v, ok := Atoi(`"200"`)
	assert.True(t, ok)
	assert.Equal(t, 200, v)

	_, ok = Atoi("N/A")
	assert.False(t, ok)
}

func TestTimedOutError(t *testing.T) {
	err := NewTimedOutError("data prompt", 5*time.Second)
	wrapped := errors.Join(errors.New("send failed"), err)

	assert.ErrorIs(t, wrapped, &TimedOutError{})
	assert.Equal(t, "timed out waiting for data prompt after 5s", err.Error())
}
