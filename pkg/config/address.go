package config

import (
	"net/mail"
	"strings"
)

// normalizeAddress reduces "Name <User@Example.com>" and "<user@example.com>"
// to "user@example.com".
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	return strings.ToLower(strings.Trim(addr, "<> "))
}
