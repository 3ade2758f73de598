// Package ingress implements Channel Ingress (§4.1): the webhook state
// machine that receives provider payloads, identifies the channel,
// deduplicates, acknowledges synchronously, and hands normalized messages
// off for asynchronous turn processing. Ported from the teacher's
// gateway/server.go HTTP-handler idiom (mux.HandleFunc, slog structured
// logging, JSON responses) generalized from a single WS/REST surface to a
// multi-provider webhook classifier.
package ingress

import (
	"bytes"
	"encoding/json"
)

// Provider names a detected webhook shape (§4.1 Provider detection).
type Provider string

const (
	ProviderWhatsApp360Dialog Provider = "whatsapp_360dialog"
	ProviderWhatsAppUltramsg  Provider = "whatsapp_ultramsg"
	ProviderWhatsAppTwilio    Provider = "whatsapp_twilio"
	ProviderTelegram          Provider = "telegram"
	ProviderEmail             Provider = "email"
	ProviderUnknown           Provider = "unknown"
)

// Kind classifies an inbound webhook request (§4.1 state machine).
type Kind string

const (
	KindMessage Kind = "message"
	KindStatus  Kind = "status"
	KindUnknown Kind = "unknown"
)

// detectionShape is the minimal superset of fields needed to classify a
// payload without fully unmarshaling it into a provider-specific struct.
type detectionShape struct {
	Object      string `json:"object"`
	InstanceID  string `json:"instanceId"`
	MessageSid  string `json:"MessageSid"`
	AccountSid  string `json:"AccountSid"`
	UpdateID    *int64 `json:"update_id"` // telegram
	Body        json.RawMessage `json:"body"` // outer wrapper some providers use
}

// unwrap strips one level of {"body": ...} wrapping if present, per §4.1.
func unwrap(raw []byte) []byte {
	var shape detectionShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return raw
	}
	if len(shape.Body) > 0 && bytes.TrimSpace(shape.Body)[0] == '{' {
		return shape.Body
	}
	return raw
}

// DetectProvider classifies raw according to §4.1's pure shape
// classification, unwrapping an outer "body" field first.
func DetectProvider(raw []byte) (Provider, []byte) {
	inner := unwrap(raw)

	var shape detectionShape
	if err := json.Unmarshal(inner, &shape); err != nil {
		return ProviderUnknown, inner
	}

	switch {
	case shape.Object == "whatsapp_business_account":
		return ProviderWhatsApp360Dialog, inner
	case shape.InstanceID != "":
		return ProviderWhatsAppUltramsg, inner
	case shape.MessageSid != "" || shape.AccountSid != "":
		return ProviderWhatsAppTwilio, inner
	case shape.UpdateID != nil:
		return ProviderTelegram, inner
	default:
		return ProviderUnknown, inner
	}
}
