package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message categories carried in envelopes.
const (
	CategoryOrderData     = "ORDER_DATA"
	CategoryStateChange   = "STATE_CHANGE"
	CategoryReferenceData = "REFERENCE_DATA"
	CategoryTradeData     = "TRADE_DATA"
	CategoryTopOfBook     = "TOP_OF_BOOK"
	CategoryAudit         = "AUDIT"
)

// Envelope wraps every message on the wire. MessageID makes individual
// messages traceable across services; Sequence is per category and lets
// consumers detect gaps.
type Envelope struct {
	MessageID string          `json:"messageId"`
	Category  string          `json:"category"`
	Sequence  uint64          `json:"sequence"`
	SentAt    time.Time       `json:"sentAt"`
	Payload   json.RawMessage `json:"payload"`
}

func NewEnvelope(category string, sequence uint64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", category, err)
	}
	return Envelope{
		MessageID: uuid.NewString(),
		Category:  category,
		Sequence:  sequence,
		SentAt:    time.Now(),
		Payload:   raw,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", e.MessageID, err)
	}
	return b, nil
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}

// Unwrap decodes the envelope payload into v.
func (e Envelope) Unwrap(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload of %s: %w", e.Category, e.MessageID, err)
	}
	return nil
}
