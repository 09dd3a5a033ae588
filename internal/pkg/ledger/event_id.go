package ledger

import "strings"

// PaymentEventID derives the canonical idempotency key for a checkout
// session. The webhook handler and the client-triggered verification path
// must both go through this function; if they ever diverged, the same
// payment could be credited twice under two different keys.
func PaymentEventID(sessionID string) string {
	return "session_" + strings.TrimSpace(sessionID)
}
