package at

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/transport"
	"github.com/LeoCommon/cellgw/pkg/log"
	"go.uber.org/zap"
)

const readChunkSize = 256

// Engine runs command/response transactions over a single transport.
//
// The serial line has no framing that would allow telling interleaved replies apart,
// so the engine holds its lock for the whole transaction, including the payload phase.
// Responses are therefore always attributed to the command that preceded them.
type Engine struct {
	mu sync.Mutex

	t    transport.Transport
	sink Sink

	// poll bounds a single read so the overall deadline is honoured
	poll  time.Duration
	sleep func(time.Duration)

	// bytes of an incomplete line
	pending []byte
	chunk   []byte
	closed  bool
}

type Option func(e *Engine)

// WithSink forwards every command and received line to the sink
func WithSink(s Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithSleep replaces time.Sleep for the payload settle delay
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

func NewEngine(t transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		t:     t,
		sink:  NopSink{},
		poll:  DefaultPollInterval,
		sleep: time.Sleep,
		chunk: make([]byte, readChunkSize),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Transact sends one command and collects its response.
//
// A missing terminal line is not an error, the returned Response is simply not
// terminated and holds whatever arrived. Only transport failures are returned as error.
func (e *Engine) Transact(cmd Command) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	cmd = cmd.withDefaults()
	resp := &Response{Command: cmd.Text}
	start := time.Now()

	err := e.transact(cmd, resp)
	resp.Elapsed = time.Since(start)

	if err != nil {
		log.Error("transaction aborted", zap.String("cmd", cmd.Text), zap.Error(err))
		return resp, err
	}

	if resp.TimedOut() {
		log.Debug("timeout waiting for response", zap.String("cmd", cmd.Text), zap.Duration("timeout", cmd.Timeout), zap.Strings("lines", resp.Lines))
	}

	return resp, nil
}

func (e *Engine) transact(cmd Command, resp *Response) error {
	// Stale bytes from earlier transactions must never end up in this response
	if err := e.t.ResetInputBuffer(); err != nil {
		return &TransportError{Op: "reset input", Err: err}
	}
	e.pending = e.pending[:0]

	if err := e.write([]byte(cmd.Text + CRLF)); err != nil {
		return err
	}
	e.sink.Record(Sent, cmd.Text)

	if cmd.HasPayload() {
		err := e.readLines(resp, cmd.PromptTimeout, func(line string) bool {
			if matchesPrompt(line, cmd.Prompt) {
				resp.PromptSeen = true
				return true
			}

			if IsTerminal(line, "") {
				resp.Terminal = line
				return true
			}

			return false
		})
		if err != nil {
			return err
		}

		// Never stream the payload without the modem asking for it
		if !resp.PromptSeen {
			log.Warn("no prompt received, payload withheld", zap.String("cmd", cmd.Text), zap.String("prompt", cmd.Prompt), zap.Int("bytes", len(cmd.Payload)))
			return nil
		}

		if err := e.write(cmd.Payload); err != nil {
			return err
		}
		e.sink.Record(Sent, fmt.Sprintf("<%d bytes payload>", len(cmd.Payload)))

		if cmd.Settle > 0 {
			e.sleep(cmd.Settle)
		}
	}

	if cmd.expectsData() {
		return e.readData(resp, cmd)
	}

	return e.readLines(resp, cmd.Timeout, func(line string) bool {
		if cmd.isTerminal(line) {
			resp.Terminal = line
			return true
		}
		return false
	})
}

func (e *Engine) write(p []byte) error {
	if _, err := e.t.Write(p); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	if err := e.t.Drain(); err != nil {
		return &TransportError{Op: "drain", Err: err}
	}
	return nil
}

// readLines appends received lines to resp until stop returns true or the timeout elapses
func (e *Engine) readLines(resp *Response, timeout time.Duration, stop func(line string) bool) error {
	deadline := time.Now().Add(timeout)

	for {
		if e.takeLines(resp, stop) {
			return nil
		}

		if ok, err := e.fill(deadline); !ok || err != nil {
			return err
		}
	}
}

// readData reads lines up to the data marker, then exactly cmd.dataLen raw bytes.
// The data is split into lines like any other reply. An error result before the
// marker ends the transaction.
func (e *Engine) readData(resp *Response, cmd Command) error {
	deadline := time.Now().Add(cmd.Timeout)
	marked := false

	for {
		if !marked {
			marked = e.takeLines(resp, func(line string) bool {
				if IsError(line) {
					resp.Terminal = line
					return true
				}
				return strings.HasPrefix(line, cmd.dataMarker)
			})
			if resp.Terminal != "" {
				return nil
			}
		}

		if marked && len(e.pending) >= cmd.dataLen {
			e.appendData(resp, e.pending[:cmd.dataLen])
			e.pending = e.pending[cmd.dataLen:]
			resp.Terminal = cmd.dataMarker
			return nil
		}

		ok, err := e.fill(deadline)
		if err != nil {
			return err
		}
		if !ok {
			// Keep what arrived of the data, the response stays unterminated
			if marked {
				e.appendData(resp, e.pending)
				e.pending = e.pending[:0]
			}
			return nil
		}
	}
}

// takeLines moves complete lines into resp and reports whether stop accepted one
func (e *Engine) takeLines(resp *Response, stop func(line string) bool) bool {
	for {
		line, ok := e.nextLine()
		if !ok {
			return false
		}

		if line == "" {
			continue
		}

		resp.Lines = append(resp.Lines, line)
		e.sink.Record(Received, line)

		if stop(line) {
			return true
		}
	}
}

func (e *Engine) appendData(resp *Response, data []byte) {
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			resp.Lines = append(resp.Lines, l)
			e.sink.Record(Received, l)
		}
	}
}

// fill reads one chunk into the pending bytes. It returns false once the deadline passed.
func (e *Engine) fill(deadline time.Time) (bool, error) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false, nil
	}

	if err := e.t.SetReadTimeout(min(e.poll, remaining)); err != nil {
		return false, &TransportError{Op: "set read timeout", Err: err}
	}

	n, err := e.t.Read(e.chunk)
	if n > 0 {
		e.pending = append(e.pending, e.chunk[:n]...)
	}

	if err != nil {
		return false, &TransportError{Op: "read", Err: err}
	}
	return true, nil
}

// nextLine pops one line from the pending bytes. A lone prompt is a line of its own
// even though the modem does not terminate it.
func (e *Engine) nextLine() (string, bool) {
	if i := bytes.IndexByte(e.pending, '\n'); i >= 0 {
		line := strings.TrimSpace(string(e.pending[:i]))
		e.pending = e.pending[i+1:]
		return line, true
	}

	if len(e.pending) > 0 && strings.TrimSpace(string(e.pending)) == Prompt {
		e.pending = e.pending[:0]
		return Prompt, true
	}

	return "", false
}

// Close releases the transport, further transactions fail with ErrClosed
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	return e.t.Close()
}
