package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Title("bring-up")
	p.OK("sim", "READY")
	p.Warn("upload", "stored but not converted")
	p.Fail("pdp", "")
	p.Lines([]string{"+CNACT: 0,0,\"0.0.0.0\""})

	out := buf.String()
	assert.Equal(t, 5, strings.Count(out, "\n"))
	assert.Contains(t, out, "bring-up")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "READY")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, `+CNACT: 0,0,"0.0.0.0"`)
}

func TestBox(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Box(Field{"IP", "10.0.0.5"}, Field{"Operator", "1NCE"})

	out := buf.String()
	assert.Contains(t, out, "10.0.0.5")
	assert.Contains(t, out, "Operator:")
	assert.Contains(t, out, "IP:")
}
