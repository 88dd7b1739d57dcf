package at

import (
	"slices"
	"strings"
	"time"
)

// Command is a single command line plus an optional payload sent after a prompt.
// It is a value, the With* helpers return modified copies.
type Command struct {
	Text string

	// Terminal is an additional terminating substring, empty means the standard set only
	Terminal string
	// done replaces the standard set except for error results
	done    func(line string) bool
	Timeout time.Duration

	// Payload is written raw once Prompt was observed
	Payload       []byte
	Prompt        string
	PromptTimeout time.Duration

	// Settle delays reading the confirmation after the payload was written
	Settle time.Duration

	// dataMarker is the line prefix after which dataLen raw bytes follow
	dataMarker string
	dataLen    int
}

// Cmd creates a command with the default timeout
func Cmd(text string) Command {
	return Command{Text: text, Timeout: DefaultTimeout}
}

func (c Command) WithTimeout(d time.Duration) Command {
	c.Timeout = d
	return c
}

// UntilContains makes every line containing token terminal, e.g. DOWNLOAD
func (c Command) UntilContains(token string) Command {
	c.Terminal = token
	return c
}

// AwaitURC reads past the OK of the command until a line containing token arrives,
// e.g. the +SHREQ result that follows the acknowledgement
func (c Command) AwaitURC(token string) Command {
	c.Terminal = token
	return c.Until(func(line string) bool {
		return strings.Contains(line, token)
	})
}

// Until ends the transaction at the first line done accepts or at an error result.
// done may keep state, it is only called for the lines of this transaction.
func (c Command) Until(done func(line string) bool) Command {
	c.done = done
	return c
}

// ExpectData reads n raw bytes once a line starting with marker arrived, e.g. the
// body after "+SHREAD:". Line ends and blank lines inside the data are counted,
// the transaction ends as soon as the last byte is in.
func (c Command) ExpectData(marker string, n int) Command {
	c.dataMarker = marker
	c.dataLen = n
	return c
}

func (c Command) expectsData() bool {
	return c.dataMarker != "" && c.dataLen > 0
}

// WithPayload attaches raw bytes that are streamed after prompt appeared
func (c Command) WithPayload(prompt string, data []byte, promptTimeout time.Duration) Command {
	c.Prompt = prompt
	c.Payload = slices.Clone(data)
	if c.Payload == nil {
		c.Payload = []byte{}
	}
	c.PromptTimeout = promptTimeout
	return c
}

func (c Command) WithSettle(d time.Duration) Command {
	c.Settle = d
	return c
}

func (c Command) HasPayload() bool {
	return c.Payload != nil
}

func (c Command) isTerminal(line string) bool {
	if c.done != nil {
		return IsError(line) || c.done(line)
	}
	return IsTerminal(line, c.Terminal)
}

func (c Command) withDefaults() Command {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HasPayload() {
		if c.Prompt == "" {
			c.Prompt = Prompt
		}
		if c.PromptTimeout <= 0 {
			c.PromptTimeout = DefaultPromptTimeout
		}
	}
	return c
}
