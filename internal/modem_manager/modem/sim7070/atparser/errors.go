package atparser

import "errors"

var (
	ErrNoRecord    = errors.New("no matching status line")
	ErrNoService   = errors.New("modem reports no service")
	ErrShortRecord = errors.New("status line has too few fields")
)
