package at

import (
	"strings"
	"time"
)

const (
	// Terminal Control
	CRLF = "\r\n"

	// Result codes
	OK       = "OK"
	ERROR    = "ERROR"
	CmeError = "+CME ERROR"
	CmsError = "+CMS ERROR"

	// Prompt is the data prompt, SIMCom sends it as "> " without a line terminator
	Prompt = ">"
	// Download is the prompt token of the file system write request
	Download = "DOWNLOAD"

	DefaultTimeout       = 5 * time.Second
	DefaultPromptTimeout = 5 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
)

// IsError reports whether the line is a modem reported failure
func IsError(line string) bool {
	return strings.HasPrefix(line, ERROR) ||
		strings.HasPrefix(line, CmeError) ||
		strings.HasPrefix(line, CmsError)
}

// IsTerminal reports whether no further output is expected after this line.
// The standard set is an exact OK or any error result, a non-empty custom token
// additionally terminates every line containing it.
func IsTerminal(line string, custom string) bool {
	if line == OK || IsError(line) {
		return true
	}

	return custom != "" && strings.Contains(line, custom)
}

func matchesPrompt(line string, prompt string) bool {
	if prompt == Prompt {
		return line == Prompt
	}

	return strings.Contains(line, prompt)
}

// Direction tells the log sink which way a line travelled
type Direction int

const (
	Sent Direction = iota
	Received
)

func (d Direction) String() string {
	if d == Sent {
		return ">>"
	}
	return "<<"
}

// Sink receives every command sent and every line received.
// Implementations must not fail the caller, write errors are theirs to swallow.
type Sink interface {
	Record(dir Direction, text string)
}

type NopSink struct{}

func (NopSink) Record(Direction, string) {}
