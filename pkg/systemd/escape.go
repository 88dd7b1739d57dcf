package systemd

import (
	"fmt"
	"strings"
	"unicode"
)

// EscapeObjectPath turns a unit name into a D-Bus object path element.
// Everything but letters and digits is hex encoded behind an underscore,
// so is a leading digit. The empty string becomes "_".
func EscapeObjectPath(path string) string {
	if len(path) == 0 {
		return "_"
	}

	var b strings.Builder
	for i, c := range path {
		if (i == 0 && unicode.IsDigit(c)) || (!unicode.IsLetter(c) && !unicode.IsDigit(c)) {
			fmt.Fprintf(&b, "_%x", c)
			continue
		}
		b.WriteRune(c)
	}

	return b.String()
}
