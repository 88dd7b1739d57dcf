package sim7070

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070/atparser"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/retry"
	"go.uber.org/zap"
)

const (
	TCPOpenAttempts = 3
	TCPOpenDelay    = 5 * time.Second

	SendPromptTimeout = 5 * time.Second
	ReceivePoll       = time.Second

	DefaultReceiveLen     = 100
	DefaultReceiveTimeout = 10 * time.Second
)

type SessionState string

const (
	SessionClosed  SessionState = "closed"
	SessionOpening SessionState = "opening"
	SessionOpen    SessionState = "open"
)

// TCPSession is a client connection of the modem's internal stack
type TCPSession struct {
	m *Modem

	ConnID    int
	ContextID int
	Host      string
	Port      int
	State     SessionState
}

// OpenTCP opens connection connID on PDP context ctxID. Failed attempts are closed
// before the next one.
func (m *Modem) OpenTCP(connID int, ctxID int, host string, port int) (*TCPSession, error) {
	if s, ok := m.tcp[connID]; ok && s.State != SessionClosed {
		return nil, fmt.Errorf("%w: connection %d", ErrSessionOpen, connID)
	}

	s := &TCPSession{m: m, ConnID: connID, ContextID: ctxID, Host: host, Port: port, State: SessionOpening}
	m.tcp[connID] = s

	// Plain TCP, the connection would otherwise inherit an SSL setup
	if err := m.exec(atTCPDisableSSL(connID)); err != nil {
		s.State = SessionClosed
		return nil, err
	}

	p := m.policy(TCPOpenAttempts, 0)
	_, err := retry.Do(p, func(attempt int) (bool, error) {
		if attempt > 1 {
			if err := m.exec(atTCPClose(connID)); err != nil {
				return false, err
			}
			m.sleep(TCPOpenDelay)
		}

		log.Info("opening tcp connection", zap.Int("conn", connID), zap.Int("ctx", ctxID), zap.String("host", host), zap.Int("port", port), zap.Int("attempt", attempt))
		resp, err := m.run(at.Cmd(atTCPOpen(connID, ctxID, host, port)))
		if err != nil {
			return false, err
		}

		result, ok := atparser.OpenResult(resp.Lines, connID)
		if !ok || result != 0 {
			log.Warn("tcp open attempt failed", zap.Int("conn", connID), zap.Int("result", result), zap.Strings("lines", resp.Lines))
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		s.abandon()
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%w %s:%d: %w", ErrOpenFailed, host, port, err)
		}
		return nil, err
	}

	s.State = SessionOpen
	return s, nil
}

// abandon closes a connection whose open failed. The modem may still hold
// a half-open socket, a failing close is only logged.
func (s *TCPSession) abandon() {
	s.State = SessionClosed
	if err := s.m.exec(atTCPClose(s.ConnID)); err != nil {
		log.Warn("closing failed tcp connection", zap.Int("conn", s.ConnID), zap.Error(err))
	}
}

// Active asks the modem whether the connection is still up
func (s *TCPSession) Active() (bool, error) {
	if s.State != SessionOpen {
		return false, nil
	}

	resp, err := s.m.run(at.Cmd(AtTCPStateQuery))
	if err != nil {
		return false, err
	}
	return atparser.ConnectionActive(resp.Lines, s.ConnID), nil
}

// Send announces the length, waits for the prompt and streams data
func (s *TCPSession) Send(data []byte) error {
	if s.State != SessionOpen {
		return ErrSessionNotOpen
	}

	cmd := at.Cmd(atTCPSend(s.ConnID, len(data))).WithPayload(at.Prompt, data, SendPromptTimeout)
	resp, err := s.m.run(cmd)
	if err != nil {
		return err
	}

	if !resp.PromptSeen {
		return promptTimeout()
	}
	if resp.Failed() {
		return fmt.Errorf("%w: %s", ErrSendFailed, resp.Terminal)
	}

	log.Info("tcp data sent", zap.Int("conn", s.ConnID), zap.Int("bytes", len(data)))
	return nil
}

// Receive polls for up to maxLen bytes until data arrives or timeout passes.
// ErrNoData is a status, the connection itself may be fine.
func (s *TCPSession) Receive(maxLen int, timeout time.Duration) (string, error) {
	if s.State != SessionOpen {
		return "", ErrSessionNotOpen
	}

	polls := max(1, int(timeout/ReceivePoll))

	var data string
	_, err := retry.Do(s.m.policy(polls, ReceivePoll), func(int) (bool, error) {
		resp, err := s.m.run(at.Cmd(atTCPReceive(s.ConnID, maxLen)))
		if err != nil {
			return false, err
		}

		rcv, ok := atparser.ReceivedData(resp.Lines)
		if !ok {
			return false, nil
		}

		data = rcv.Data
		return true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return "", ErrNoData
	}
	if err != nil {
		return "", err
	}

	return data, nil
}

// Close is a no-op for a closed session
func (s *TCPSession) Close() error {
	if s.State == SessionClosed {
		return nil
	}

	s.State = SessionClosed
	return s.m.exec(atTCPClose(s.ConnID))
}

type TCPTestResult struct {
	Sent     string
	Received string

	// Echoed is false when nothing came back, which is not an error
	Echoed bool
}

// TCPTestPayload is the line sent to the echo server
const TCPTestPayload = "Hello world!\n"

// TCPTest opens a connection, sends the payload and waits for an echo.
// The connection is closed in any case.
func (m *Modem) TCPTest(connID int, ctxID int, host string, port int, payload string) (res *TCPTestResult, err error) {
	s, err := m.OpenTCP(connID, ctxID, host, port)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	active, err := s.Active()
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: connection %d", ErrSessionNotActive, connID)
	}

	if err := s.Send([]byte(payload)); err != nil {
		return nil, err
	}

	res = &TCPTestResult{Sent: payload}

	data, err := s.Receive(DefaultReceiveLen, DefaultReceiveTimeout)
	if errors.Is(err, ErrNoData) {
		log.Warn("no echoed data received within timeout", zap.Int("conn", connID))
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	res.Received, res.Echoed = data, true
	return res, nil
}
