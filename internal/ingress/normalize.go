package ingress

import (
	"encoding/json"
	"fmt"
)

// NormalizedMessage is the provider-agnostic shape the rest of the pipeline
// consumes (§4.1 NORMALIZE step).
type NormalizedMessage struct {
	Provider          Provider
	ChannelUserID     string // e.g. "593...@c.us", a chat id, an email address
	Content           string
	OriginalMessageID string // provider-assigned id, used for dedup
	PrimaryKey        string // instance id / account SID / phone-number id for channel identification
}

// dialog360Payload is the subset of 360dialog's Cloud-API-shaped webhook
// this ingress needs.
type dialog360Payload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type ultramsgPayload struct {
	InstanceID string `json:"instanceId"`
	Data       struct {
		ID     string `json:"id"`
		From   string `json:"from"`
		Body   string `json:"body"`
		Type   string `json:"type"`
		Ack    string `json:"ack"`    // present on status-only callbacks
		FromMe bool   `json:"fromMe"` // true when the instance itself sent this message
	} `json:"data"`
}

type twilioPayload struct {
	MessageSid string `json:"MessageSid"`
	AccountSid string `json:"AccountSid"`
	From       string `json:"From"`
	Body       string `json:"Body"`
	SmsStatus  string `json:"SmsStatus"` // "received" for inbound; delivery states otherwise
}

// telegramPayload is the subset of the Bot API's Update object this
// ingress needs. A single bot serves the whole deployment (§6
// TELEGRAM_BOT_TOKEN), so there is no per-update primary key to identify
// a channel instance by — routing falls back to channel_type alone.
type telegramPayload struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			IsBot bool `json:"is_bot"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

// Classify inspects the provider-specific payload and reports whether it
// is a user message, a status event, or unrecognized (§4.1 CLASSIFY). A
// provider echo of the bot's own outbound send — the target reacting to
// the same message the hub just pushed out, looped back through the
// inbound webhook — is classified as KindStatus, not KindMessage: letting
// it through would re-trigger the orchestrator on the bot's own reply.
func Classify(provider Provider, raw []byte) (Kind, *NormalizedMessage) {
	switch provider {
	case ProviderWhatsApp360Dialog:
		return classify360Dialog(raw)
	case ProviderWhatsAppUltramsg:
		return classifyUltramsg(raw)
	case ProviderWhatsAppTwilio:
		return classifyTwilio(raw)
	case ProviderTelegram:
		return classifyTelegram(raw)
	default:
		return KindUnknown, nil
	}
}

func classify360Dialog(raw []byte) (Kind, *NormalizedMessage) {
	var p dialog360Payload
	if err := json.Unmarshal(raw, &p); err != nil || len(p.Entry) == 0 {
		return KindUnknown, nil
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Statuses) > 0 && len(change.Value.Messages) == 0 {
				return KindStatus, nil
			}
			for _, m := range change.Value.Messages {
				// The Cloud API addresses messages by phone number, not a
				// stable account id, so a self-send shows up as a message
				// "from" the channel's own number.
				if m.From != "" && m.From == change.Value.Metadata.PhoneNumberID {
					return KindStatus, nil
				}
				return KindMessage, &NormalizedMessage{
					Provider:          ProviderWhatsApp360Dialog,
					ChannelUserID:     m.From,
					Content:           m.Text.Body,
					OriginalMessageID: m.ID,
					PrimaryKey:        change.Value.Metadata.PhoneNumberID,
				}
			}
		}
	}
	return KindUnknown, nil
}

func classifyUltramsg(raw []byte) (Kind, *NormalizedMessage) {
	var p ultramsgPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return KindUnknown, nil
	}
	if p.Data.Ack != "" && p.Data.Body == "" {
		return KindStatus, nil
	}
	if p.Data.FromMe {
		return KindStatus, nil
	}
	if p.Data.ID == "" {
		return KindUnknown, nil
	}
	return KindMessage, &NormalizedMessage{
		Provider:          ProviderWhatsAppUltramsg,
		ChannelUserID:     p.Data.From,
		Content:           p.Data.Body,
		OriginalMessageID: p.Data.ID,
		PrimaryKey:        p.InstanceID,
	}
}

func classifyTwilio(raw []byte) (Kind, *NormalizedMessage) {
	var p twilioPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return KindUnknown, nil
	}
	if p.MessageSid == "" {
		return KindUnknown, nil
	}
	if p.SmsStatus != "" && p.SmsStatus != "received" {
		return KindStatus, nil
	}
	// Twilio's inbound-message webhook is only ever invoked for messages
	// addressed to the Twilio number, never for the hub's own outbound
	// sends (those post to Twilio's REST API directly and generate a
	// separate status-callback request, handled above) — no self-message
	// field exists here because the echo this ingress guards against in
	// other providers cannot occur on this one.
	return KindMessage, &NormalizedMessage{
		Provider:          ProviderWhatsAppTwilio,
		ChannelUserID:     p.From,
		Content:           p.Body,
		OriginalMessageID: p.MessageSid,
		PrimaryKey:        p.AccountSid,
	}
}

func classifyTelegram(raw []byte) (Kind, *NormalizedMessage) {
	var p telegramPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return KindUnknown, nil
	}
	if p.Message == nil {
		// edited_message, callback_query, my_chat_member, etc. — not a
		// user-message turn; not an error either.
		return KindStatus, nil
	}
	if p.Message.From.IsBot {
		return KindStatus, nil
	}
	return KindMessage, &NormalizedMessage{
		Provider:          ProviderTelegram,
		ChannelUserID:     fmt.Sprintf("%d", p.Message.Chat.ID),
		Content:           p.Message.Text,
		OriginalMessageID: fmt.Sprintf("%d", p.Message.MessageID),
	}
}
