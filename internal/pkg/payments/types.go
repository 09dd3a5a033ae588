package payments

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EventTypeCheckoutCompleted is the only event type that grants credits;
// everything else is acknowledged and ignored.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// PaymentStatusPaid is the provider's settled state for a checkout session.
const PaymentStatusPaid = "paid"

// Event is the outer provider webhook envelope.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession mirrors the provider's checkout session object, reduced to
// the fields the ledger flows read.
type CheckoutSession struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	URL           string            `json:"url"`
	Metadata      map[string]string `json:"metadata"`
}

// MetadataUserID returns the purchasing user recorded on the session at
// checkout creation time.
func (s *CheckoutSession) MetadataUserID() string {
	return strings.TrimSpace(s.Metadata["userId"])
}

// MetadataCredits parses the credit amount recorded on the session. Returns
// 0 for absent or malformed values; callers treat non-positive as invalid.
func (s *CheckoutSession) MetadataCredits() int64 {
	raw := strings.TrimSpace(s.Metadata["credits"])
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseEvent decodes a raw webhook payload. Callers must verify the
// signature over the raw bytes before trusting anything in here.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// CheckoutSession decodes the event's inner object as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
