package at

import (
	"strings"
	"time"
)

// Response holds the lines received between issuing a command and its terminal line,
// or everything that arrived until the timeout expired.
type Response struct {
	Command string
	Lines   []string

	// Terminal is the line that ended the transaction, empty on timeout
	Terminal string

	// PromptSeen is only meaningful for commands with a payload
	PromptSeen bool

	Elapsed time.Duration
}

func (r *Response) Terminated() bool {
	return r.Terminal != ""
}

func (r *Response) TimedOut() bool {
	return !r.Terminated()
}

// OK reports a terminal line of exactly OK
func (r *Response) OK() bool {
	return r.Terminal == OK
}

// Failed reports a modem reported error as terminal line
func (r *Response) Failed() bool {
	return IsError(r.Terminal)
}

// Contains reports whether any line contains sub
func (r *Response) Contains(sub string) bool {
	for _, l := range r.Lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

// First returns the first line starting with prefix
func (r *Response) First(prefix string) (string, bool) {
	for _, l := range r.Lines {
		if strings.HasPrefix(l, prefix) {
			return l, true
		}
	}
	return "", false
}

// All returns every line starting with prefix
func (r *Response) All(prefix string) []string {
	var out []string
	for _, l := range r.Lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

func (r *Response) String() string {
	return strings.Join(r.Lines, "\n")
}
