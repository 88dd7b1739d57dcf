package sim7070

import (
	"testing"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at/attest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	m, fake, _ := newTestModem(t)
	fake.On(`AT+SNPING4="8.8.8.8",4,32,1000`, attest.OK(
		"+SNPING4: 1,8.8.8.8,61",
		"+SNPING4: 2,8.8.8.8,58",
		"+SNPING4: 3,8.8.8.8,-1",
		"+SNPING4: 4,8.8.8.8,70",
	))

	res, err := m.Ping(PingRequest{})
	require.NoError(t, err)

	assert.False(t, res.Incomplete)
	assert.Len(t, res.Replies, 4)
	assert.Equal(t, 4, res.Stats.Transmitted)
	assert.Equal(t, 3, res.Stats.Received)
	assert.Equal(t, 1, res.Stats.Lost())
}

func TestPingIncomplete(t *testing.T) {
	m, fake, _ := newTestModem(t)
	fake.On(`AT+SNPING4="4.175.145.21",2,64,500`, attest.Reply("+SNPING4: 1,4.175.145.21,80", "ERROR"))

	res, err := m.Ping(PingRequest{Host: "4.175.145.21", Count: 2, Size: 64, TimeoutMs: 500})
	require.NoError(t, err)

	assert.True(t, res.Incomplete)
	assert.Equal(t, 1, res.Stats.Transmitted)
}
