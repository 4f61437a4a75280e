package email

import (
	"regexp"
	"strings"
)

// nonSpace excludes every Unicode space: ASCII whitespace including vertical
// tab, the Z separators (NBSP, U+2000-U+200A, U+2028/9, U+3000, ...) and
// the U+FEFF byte order mark.
const nonSpace = `[^\s\v\p{Z}\x{FEFF}]`

// shape is the loose "x@y.z" check applied before an address is handed to the
// identity service. Deliverability is the identity service's concern.
var shape = regexp.MustCompile(`^` + nonSpace + `+@` + nonSpace + `+\.` + nonSpace + `+$`)

// MatchesShape reports whether s looks like an email address: non-space runs
// around an '@' and at least one '.' after it.
func MatchesShape(s string) bool {
	return shape.MatchString(s)
}

// Mask hides the local part of an address for logs and audit trails,
// keeping the first character and the domain: "ana@example.com" -> "a***@example.com".
func Mask(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		if address == "" {
			return ""
		}
		return "***"
	}
	local := []rune(address[:at])
	return string(local[0]) + "***" + address[at:]
}
