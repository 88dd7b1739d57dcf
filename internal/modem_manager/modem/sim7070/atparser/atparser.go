// Package atparser extracts typed fields from SIM7070G status lines.
//
// All functions take the raw lines of a response. Lines that do not carry the
// expected prefix are skipped, the modem interleaves echoes and unsolicited codes.
package atparser

import (
	"strings"

	"github.com/LeoCommon/cellgw/pkg/misc"
)

// payload returns the part of the line after prefix, e.g. "20,99" for "+CSQ: 20,99"
func payload(line string, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), prefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// fields splits the payload of a matching line on commas
func fields(line string, prefix string) ([]string, bool) {
	p, ok := payload(line, prefix)
	if !ok {
		return nil, false
	}

	parts := strings.Split(p, ",")
	for i := range parts {
		parts[i] = misc.Field(parts[i])
	}
	return parts, true
}

// intAt parses field i strictly
func intAt(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, false
	}
	return misc.Atoi(parts[i])
}
