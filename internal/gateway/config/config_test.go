package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[modem]
port = "/dev/ttyUSB2"
baudrate = 57600
read_timeout = "500ms"
usb_detect = true
stop_modem_manager = true

[power]
command = ["gpioset", "gpiochip0", "4=1"]
release_command = ["gpioset", "gpiochip0", "4=0"]
hold = "1500ms"
handshake_attempts = 5

[network]
apn = "internet.test"
nb_mode = 3
attach_timeout = "1m"

[ping]
host = "1.1.1.1"
count = 2
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	log.Init(true)

	m := NewManager()
	require.NoError(t, m.Load(writeConfig(t, sampleConfig), false))

	modem := m.Modem().C()
	assert.Equal(t, "/dev/ttyUSB2", modem.Port)
	assert.True(t, modem.StopModemManager)
	assert.Equal(t, 500*time.Millisecond, modem.TransportConfig().ReadTimeout)
	assert.Equal(t, 57600, modem.TransportConfig().BaudRate)

	pwr := m.Power().C()
	assert.Equal(t, []string{"gpioset", "gpiochip0", "4=1"}, pwr.Command)
	assert.Equal(t, 1500*time.Millisecond, pwr.Hold.Value())
	assert.Equal(t, 10*time.Second, pwr.BootWait.Value())
	assert.Equal(t, 5, pwr.HandshakeAttempts)

	opts := m.Network().C().Options()
	assert.Equal(t, "internet.test", opts.APN)
	assert.Equal(t, 38, opts.NetworkMode)
	assert.Equal(t, 3, opts.NBMode)
	assert.Equal(t, time.Minute, opts.AttachTimeout)
	assert.Equal(t, 10*time.Second, opts.AttachPoll)

	req := m.Ping().C().Request()
	assert.Equal(t, "1.1.1.1", req.Host)
	assert.Equal(t, 2, req.Count)
	assert.Equal(t, 32, req.Size)

	// Untouched sections keep their defaults
	assert.Equal(t, 4242, m.TCP().C().Port)
	assert.Equal(t, "CORTUS_SIM7070G", m.HTTP().C().UserAgent)
	assert.Equal(t, DefaultTrafficLog, m.Log().TrafficFile)
}

func TestLoadMissingFile(t *testing.T) {
	log.Init(true)
	path := filepath.Join(t.TempDir(), "missing.toml")

	assert.Error(t, NewManager().Load(path, false))

	m := NewManager()
	require.NoError(t, m.Load(path, true))
	assert.Equal(t, "iot.1nce.net", m.Network().C().APN)
}

func TestVerify(t *testing.T) {
	log.Init(true)

	for name, content := range map[string]string{
		"empty apn":    "[network]\napn = \"\"\n",
		"tcp port":     "[tcp]\nport = 70000\n",
		"baud rate":    "[modem]\nbaudrate = -1\n",
		"handshakes":   "[power]\nhandshake_attempts = 0\n",
		"ping count":   "[ping]\ncount = 0\n",
		"url scheme":   "[http]\nurl = \"ftp://example.com\"\n",
		"bad token":    "[http]\nbearer_token = \"garbage\"\n",
		"usb model":    "[modem]\nusb_detect = true\nmodel = \"sim800\"\n",
		"broken toml":  "[modem\n",
		"bad duration": "[modem]\nread_timeout = \"soon\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, NewManager().Load(writeConfig(t, content), false))
		})
	}
}

func TestSetAndSave(t *testing.T) {
	log.Init(true)

	path := writeConfig(t, sampleConfig)
	m := NewManager()
	require.NoError(t, m.Load(path, false))

	m.Network().Set(func(c *NetworkConfig) { c.APN = "changed.apn" })
	require.NoError(t, m.Network().Save())

	reloaded := NewManager()
	require.NoError(t, reloaded.Load(path, false))
	assert.Equal(t, "changed.apn", reloaded.Network().C().APN)
	assert.Equal(t, 500*time.Millisecond, reloaded.Modem().C().ReadTimeout.Value())

	assert.Error(t, NewManager().Save())
}
