package smtptest

import "strings"

// ExtractHeader returns the value of the named header in a raw
// RFC 5322 message, or the empty string if the header is absent.
// Folded (multi-line) header values are not unfolded; these tests
// don't produce them.
func ExtractHeader(raw, name string) string {
	head := raw
	if i := strings.Index(raw, "\r\n\r\n"); i >= 0 {
		head = raw[:i]
	}
	for _, line := range strings.Split(head, "\r\n") {
		if strings.HasPrefix(line, name+":") {
			return strings.TrimSpace(strings.TrimPrefix(line, name+":"))
		}
	}
	return ""
}
