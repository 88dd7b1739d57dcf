// Package attest provides a scripted in-memory modem for tests.
//
// The fake answers command lines written to it with queued replies, honours the read
// timeout like a serial port (Read returns (0, nil) when nothing arrives in time) and can
// swallow payload bytes after a prompt.
package attest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/transport"
)

// Step is the modem's reaction to one command line
type Step struct {
	// Lines are sent, each followed by CRLF
	Lines []string
	// Raw is sent verbatim after Lines, e.g. "> "
	Raw string
	// Expect is the number of payload bytes swallowed after this step
	Expect int
	// After are the lines sent once the payload is complete
	After []string
}

// Reply answers with the given lines
func Reply(lines ...string) Step {
	return Step{Lines: lines}
}

// OK answers with the given lines followed by OK
func OK(lines ...string) Step {
	return Step{Lines: append(lines, "OK")}
}

// Silent never answers, the command runs into its timeout
func Silent() Step {
	return Step{}
}

// Prompt answers with the data prompt and expects n payload bytes before sending after
func Prompt(n int, after ...string) Step {
	return Step{Raw: "> ", Expect: n, After: after}
}

// Download answers with the upload prompt and expects n payload bytes before sending after
func Download(n int, after ...string) Step {
	return Step{Lines: []string{"DOWNLOAD"}, Expect: n, After: after}
}

// Handler answers commands that have no scripted steps
type Handler func(cmd string) (Step, bool)

type Modem struct {
	mu sync.Mutex

	scripts  map[string][]Step
	fallback Handler

	out     bytes.Buffer
	in      bytes.Buffer
	ready   chan struct{}
	closed  chan struct{}
	timeout time.Duration

	expect  int
	after   []string
	payload bytes.Buffer

	commands []string
	payloads [][]byte
	readErr  error
	resets   int
}

var _ transport.Transport = (*Modem)(nil)

func New() *Modem {
	return &Modem{
		scripts: make(map[string][]Step),
		ready:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
		timeout: time.Second,
	}
}

// On scripts the replies to a command. Each occurrence consumes one step,
// the last step is repeated forever.
func (m *Modem) On(cmd string, steps ...Step) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts[cmd] = append(m.scripts[cmd], steps...)
	return m
}

// Replace drops whatever was scripted for cmd and scripts steps instead
func (m *Modem) Replace(cmd string, steps ...Step) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts[cmd] = append([]Step(nil), steps...)
	return m
}

// Fallback answers every command without a script, the default is ERROR
func (m *Modem) Fallback(h Handler) *Modem {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = h
	return m
}

// Inject queues unsolicited bytes as if they arrived on the line
func (m *Modem) Inject(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.out.WriteString(data)
	m.notify()
}

// FailReads makes every following Read return err
func (m *Modem) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readErr = err
}

// Commands returns all command lines received so far
func (m *Modem) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.commands...)
}

// Count returns how often cmd was received
func (m *Modem) Count(cmd string) int {
	n := 0
	for _, c := range m.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

// Payloads returns the raw payloads received after prompts
func (m *Modem) Payloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]byte(nil), m.payloads...)
}

// Resets returns how often the input buffer was discarded
func (m *Modem) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resets
}

func (m *Modem) notify() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *Modem) send(lines []string, raw string) {
	for _, l := range lines {
		m.out.WriteString(l + "\r\n")
	}
	m.out.WriteString(raw)
	m.notify()
}

func (m *Modem) step(cmd string) Step {
	steps, ok := m.scripts[cmd]
	if ok && len(steps) > 0 {
		s := steps[0]
		if len(steps) > 1 {
			m.scripts[cmd] = steps[1:]
		}
		return s
	}

	if m.fallback != nil {
		if s, ok := m.fallback(cmd); ok {
			return s
		}
	}

	return Reply("ERROR")
}

func (m *Modem) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	data := p
	for len(data) > 0 {
		// Payload bytes are taken raw, no line splitting
		if m.expect > 0 {
			n := min(m.expect, len(data))
			m.payload.Write(data[:n])
			data = data[n:]
			m.expect -= n

			if m.expect == 0 {
				m.payloads = append(m.payloads, bytes.Clone(m.payload.Bytes()))
				m.payload.Reset()
				m.send(m.after, "")
				m.after = nil
			}
			continue
		}

		m.in.Write(data)
		data = nil

		for {
			line, err := m.in.ReadString('\n')
			if err != nil {
				// keep the incomplete line for the next write
				m.in.Reset()
				m.in.WriteString(line)
				break
			}

			cmd := strings.TrimSpace(line)
			if cmd == "" {
				continue
			}

			m.commands = append(m.commands, cmd)
			s := m.step(cmd)
			m.send(s.Lines, s.Raw)

			if s.Expect > 0 {
				m.expect = s.Expect
				m.after = s.After

				// Whatever followed the command line in this write is payload
				rest := bytes.Clone(m.in.Bytes())
				m.in.Reset()
				data = rest
				break
			}

			if len(s.After) > 0 {
				m.send(s.After, "")
			}
		}
	}

	return len(p), nil
}

func (m *Modem) Read(p []byte) (int, error) {
	m.mu.Lock()
	timeout := m.timeout
	m.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.mu.Lock()
		if m.readErr != nil {
			err := m.readErr
			m.mu.Unlock()
			return 0, err
		}

		if m.out.Len() > 0 {
			n, _ := m.out.Read(p)
			m.mu.Unlock()
			return n, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-deadline.C:
			return 0, nil
		case <-m.closed:
			return 0, io.EOF
		}
	}
}

func (m *Modem) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resets++
	m.out.Reset()
	return nil
}

func (m *Modem) Drain() error {
	return nil
}

func (m *Modem) SetReadTimeout(t time.Duration) error {
	if t < 0 {
		return errors.New("negative read timeout")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.timeout = t
	return nil
}

func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
	return nil
}

// Dialer hands out the fake modem as transport
type Dialer struct {
	Modem *Modem
	Err   error
}

func (d Dialer) Dial() (transport.Transport, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Modem, nil
}
