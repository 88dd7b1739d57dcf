// Package sim7070 drives a SIMCom SIM7070G over its AT port: bring-up of the
// NB-IoT data connection, certificate upload and the TCP, HTTP(S) and ping tests.
package sim7070

import (
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070/atparser"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/retry"
	"go.uber.org/zap"
)

const (
	DefaultAPN         = "iot.1nce.net"
	DefaultNetworkMode = 38 // LTE only
	DefaultNBMode      = 2  // NB-IoT only

	DefaultAttachTimeout = 30 * time.Second
	DefaultAttachPoll    = 10 * time.Second
)

type Options struct {
	// APN expected for the data context
	APN string

	NetworkMode int
	NBMode      int

	// AttachTimeout bounds the registration poll after the mode change
	AttachTimeout time.Duration
	AttachPoll    time.Duration

	// Sleep replaces time.Sleep for every fixed delay and retry wait
	Sleep func(time.Duration)
}

func DefaultOptions() Options {
	return Options{
		APN:           DefaultAPN,
		NetworkMode:   DefaultNetworkMode,
		NBMode:        DefaultNBMode,
		AttachTimeout: DefaultAttachTimeout,
		AttachPoll:    DefaultAttachPoll,
	}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.APN == "" {
		o.APN = d.APN
	}
	if o.NetworkMode == 0 {
		o.NetworkMode = d.NetworkMode
	}
	if o.NBMode == 0 {
		o.NBMode = d.NBMode
	}
	if o.AttachTimeout <= 0 {
		o.AttachTimeout = d.AttachTimeout
	}
	if o.AttachPoll <= 0 {
		o.AttachPoll = d.AttachPoll
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

// Modem is not safe for concurrent workflows. The engine serializes single
// transactions, but the cached context and the sessions are shared state.
type Modem struct {
	e    *at.Engine
	opts Options

	pdp  *atparser.PDPContext
	tcp  map[int]*TCPSession
	http *HTTPSession
}

func New(e *at.Engine, opts Options) *Modem {
	opts.setDefaults()

	return &Modem{
		e:    e,
		opts: opts,
		tcp:  make(map[int]*TCPSession),
	}
}

func (m *Modem) Engine() *at.Engine {
	return m.e
}

// PDPContext returns the context cached by the last successful bring-up
func (m *Modem) PDPContext() (atparser.PDPContext, bool) {
	if m.pdp == nil {
		return atparser.PDPContext{}, false
	}
	return *m.pdp, true
}

func (m *Modem) sleep(d time.Duration) {
	if d > 0 {
		m.opts.Sleep(d)
	}
}

func (m *Modem) policy(attempts int, delay time.Duration) retry.Policy {
	return retry.Policy{Attempts: attempts, Delay: delay, Sleep: m.opts.Sleep}
}

func (m *Modem) run(cmd at.Command) (*at.Response, error) {
	return m.e.Transact(cmd)
}

// exec runs a command whose reply does not matter beyond a log line
func (m *Modem) exec(text string) error {
	resp, err := m.run(at.Cmd(text))
	if err != nil {
		return err
	}

	if !resp.OK() {
		log.Warn("command not acknowledged", zap.String("cmd", text), zap.Strings("lines", resp.Lines))
	}
	return nil
}

// Handshake sends a bare AT. It is not retried, power cycling is up to the caller.
func (m *Modem) Handshake() error {
	resp, err := m.run(at.Cmd(AtHandshake).WithTimeout(HandshakeTimeout))
	if err != nil {
		return err
	}

	if !resp.Contains(at.OK) {
		log.Warn("modem not responding", zap.Strings("lines", resp.Lines))
		return ErrHandshakeFailed
	}

	log.Info("modem responded to handshake")
	return nil
}

// SupportedModes lists the AT+CNMP and AT+CMNB modes the firmware offers
func (m *Modem) SupportedModes() (network []int, nb []int, err error) {
	resp, err := m.run(at.Cmd(AtNetworkModeTest))
	if err != nil {
		return nil, nil, err
	}
	network = atparser.SupportedModes(resp.Lines, atparser.PrefixCNMP)

	resp, err = m.run(at.Cmd(AtNBModeTest))
	if err != nil {
		return nil, nil, err
	}
	nb = atparser.SupportedModes(resp.Lines, atparser.PrefixCMNB)

	return network, nb, nil
}
