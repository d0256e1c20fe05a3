// toolkit/db/mongodb/validate.go
package mongodb

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURI does a lightweight shape check of a Mongo connection string.
// It accepts mongodb:// and mongodb+srv:// schemes, requires a non-empty host,
// and rejects CR/LF characters.
func ValidateURI(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty")
	}
	if strings.ContainsAny(raw, "\r\n") {
		return fmt.Errorf("contains CR/LF")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
	default:
		return fmt.Errorf(`scheme must be "mongodb" or "mongodb+srv" (got %q)`, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host")
	}

	return nil
}

// RedactURI masks the password of a connection string so it can be logged.
// Strings that do not parse are replaced entirely.
func RedactURI(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "[REDACTED]"
	}
	if u.User == nil {
		return u.String()
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// DatabaseFromURI returns the default database named in the URI path, if any.
func DatabaseFromURI(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
