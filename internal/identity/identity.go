// Package identity provides id generation, audit timestamps and username
// normalization for runtime database records.
package identity

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemActor is the audit identity used for writes that are not attributable
// to a signed-in user (bootstrap, seeding, background jobs).
const SystemActor = "system"

// NewID generates a collection-scoped record id of the form
// PREFIX-<unix millis>-<random>. Ids are stable for the lifetime of a record
// and are the sole upsert key.
func NewID(prefix string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// Now returns the current UTC time as an RFC 3339 timestamp with sub-second
// precision. All audit stamps and the _meta.last_updated field use this form.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// ParseStamp parses an RFC 3339 timestamp. Malformed or empty input yields
// the zero time, which orders before every valid stamp.
func ParseStamp(stamp string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StampAfter reports whether stamp a is strictly later than stamp b.
// Stamps are compared as instants, not strings, because the browser client
// writes millisecond precision while this service writes nanoseconds.
func StampAfter(a, b string) bool {
	return ParseStamp(a).After(ParseStamp(b))
}

// NormalizeUsername lowercases and trims a username. Usernames are
// case-insensitive identity keys; every lookup and store goes through this.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ActorOrSystem returns the normalized actor, or SystemActor when empty.
func ActorOrSystem(actor string) string {
	if a := NormalizeUsername(actor); a != "" {
		return a
	}
	return SystemActor
}

// UsernameFromEmail derives the audit username from an email-like identity
// string handed back by the authentication provider. Invalid input falls
// through to plain normalization.
func UsernameFromEmail(email string) string {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return NormalizeUsername(email)
	}
	return NormalizeUsername(addr.Address)
}
