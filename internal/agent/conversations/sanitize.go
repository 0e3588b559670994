package conversations

import (
	"fmt"
	"strings"
)

// Sanitize converts raw to a string, replaces every ASCII control character
// (0x00-0x1F, 0x7F) with a space and trims surrounding whitespace. nil yields "".
func Sanitize(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return strings.TrimSpace(strings.Map(replaceControl, s))
}

func replaceControl(r rune) rune {
	if r <= 0x1F || r == 0x7F {
		return ' '
	}
	return r
}
