package ingress

import "testing"

func TestDetectProvider_Ultramsg(t *testing.T) {
	raw := []byte(`{"instanceId":"148415","data":{"id":"abc","from":"593987654321@c.us","body":"hola","type":"chat"}}`)
	provider, _ := DetectProvider(raw)
	if provider != ProviderWhatsAppUltramsg {
		t.Fatalf("expected ultramsg, got %s", provider)
	}
}

func TestDetectProvider_360Dialog(t *testing.T) {
	raw := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	provider, _ := DetectProvider(raw)
	if provider != ProviderWhatsApp360Dialog {
		t.Fatalf("expected 360dialog, got %s", provider)
	}
}

func TestDetectProvider_Twilio(t *testing.T) {
	raw := []byte(`{"MessageSid":"SM123","AccountSid":"AC456","From":"+1555","Body":"hi"}`)
	provider, _ := DetectProvider(raw)
	if provider != ProviderWhatsAppTwilio {
		t.Fatalf("expected twilio, got %s", provider)
	}
}

func TestDetectProvider_UnwrapsOuterBody(t *testing.T) {
	raw := []byte(`{"body":{"instanceId":"148415","data":{"id":"abc","from":"x@c.us","body":"hola"}}}`)
	provider, inner := DetectProvider(raw)
	if provider != ProviderWhatsAppUltramsg {
		t.Fatalf("expected ultramsg after unwrap, got %s", provider)
	}
	if len(inner) == 0 {
		t.Fatal("expected unwrapped inner payload")
	}
}

func TestClassify_UltramsgStatusCallback(t *testing.T) {
	raw := []byte(`{"instanceId":"148415","data":{"id":"abc","ack":"3"}}`)
	kind, msg := Classify(ProviderWhatsAppUltramsg, raw)
	if kind != KindStatus {
		t.Fatalf("expected status kind, got %s", kind)
	}
	if msg != nil {
		t.Fatal("expected nil normalized message for a status event")
	}
}

func TestClassify_UltramsgMessage(t *testing.T) {
	raw := []byte(`{"instanceId":"148415","data":{"id":"abc","from":"593987654321@c.us","body":"hola"}}`)
	kind, msg := Classify(ProviderWhatsAppUltramsg, raw)
	if kind != KindMessage {
		t.Fatalf("expected message kind, got %s", kind)
	}
	if msg.Content != "hola" || msg.OriginalMessageID != "abc" {
		t.Fatalf("unexpected normalized message: %+v", msg)
	}
}

func TestClassify_UltramsgSelfEcho(t *testing.T) {
	raw := []byte(`{"instanceId":"148415","data":{"id":"abc","from":"593987654321@c.us","body":"hola","fromMe":true}}`)
	kind, msg := Classify(ProviderWhatsAppUltramsg, raw)
	if kind != KindStatus {
		t.Fatalf("expected a self-sent message to classify as status, got %s", kind)
	}
	if msg != nil {
		t.Fatal("expected nil normalized message for a self-echo")
	}
}

func TestClassify_TelegramBotEcho(t *testing.T) {
	raw := []byte(`{"update_id":1,"message":{"message_id":2,"chat":{"id":3},"from":{"is_bot":true},"text":"hi"}}`)
	kind, msg := Classify(ProviderTelegram, raw)
	if kind != KindStatus {
		t.Fatalf("expected a bot-authored update to classify as status, got %s", kind)
	}
	if msg != nil {
		t.Fatal("expected nil normalized message for a bot echo")
	}
}

func TestClassify_360DialogSelfEcho(t *testing.T) {
	raw := []byte(`{"entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"111"},"messages":[{"id":"m1","from":"111","type":"text","text":{"body":"hi"}}]}}]}]}`)
	kind, msg := Classify(ProviderWhatsApp360Dialog, raw)
	if kind != KindStatus {
		t.Fatalf("expected a message from the channel's own number to classify as status, got %s", kind)
	}
	if msg != nil {
		t.Fatal("expected nil normalized message for a self-echo")
	}
}

func TestNormalizeKey_StripsInstancePrefixAndNonDigits(t *testing.T) {
	if got := normalizeKey("instance148415"); got != "148415" {
		t.Fatalf("expected 148415, got %q", got)
	}
}

func TestPhoneDigits_StripsSuffixAndNonDigits(t *testing.T) {
	if got := phoneDigits("593987654321@c.us"); got != "593987654321" {
		t.Fatalf("expected digits-only phone, got %q", got)
	}
}
