// Package console renders workflow results for a terminal. Nothing here is ever
// sent to the modem or written to the traffic log.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
)

func (s Status) badge() string {
	switch s {
	case StatusOK:
		return okStyle.Render("[ OK ]")
	case StatusWarn:
		return warnStyle.Render("[WARN]")
	default:
		return failStyle.Render("[FAIL]")
	}
}

// Printer writes styled lines, lipgloss drops the colours when w is not a terminal
type Printer struct {
	w io.Writer
}

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}

func (p *Printer) Title(title string) {
	p.println(titleStyle.Render(title))
}

// Line prints a status badge, a label and an optional muted detail
func (p *Printer) Line(s Status, label string, detail string) {
	line := s.badge() + " " + labelStyle.Render(label)
	if detail != "" {
		line += " " + mutedStyle.Render(detail)
	}
	p.println(line)
}

func (p *Printer) OK(label string, detail string) {
	p.Line(StatusOK, label, detail)
}

func (p *Printer) Warn(label string, detail string) {
	p.Line(StatusWarn, label, detail)
}

func (p *Printer) Fail(label string, detail string) {
	p.Line(StatusFail, label, detail)
}

// Field is one row of a summary box
type Field struct {
	Label string
	Value string
}

// Box prints the fields aligned inside a rounded border
func (p *Printer) Box(fields ...Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}

	rows := make([]string, 0, len(fields))
	for _, f := range fields {
		label := labelStyle.Render(f.Label + ":" + strings.Repeat(" ", width-len(f.Label)))
		rows = append(rows, label+" "+valueStyle.Render(f.Value))
	}

	p.println(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

// Lines prints raw modem lines dimmed, used for failure diagnostics
func (p *Printer) Lines(lines []string) {
	for _, l := range lines {
		p.println(mutedStyle.Render("    " + l))
	}
}
