package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// send360Dialog posts to the 360dialog Cloud API's /messages endpoint
// (Meta Cloud API wire shape), authenticated with a D360-API-KEY header.
func (c *Channel) send360Dialog(ctx context.Context, creds Credentials, recipient, content string) error {
	body, err := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": content},
	})
	if err != nil {
		return fmt.Errorf("encode 360dialog payload: %w", err)
	}

	endpoint := c.dialog360BaseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("D360-API-KEY", creds.APIKey)
	return c.do(req)
}

// sendUltramsg posts form-encoded to Ultramsg's chat endpoint, keyed by
// instance id in the URL path and a bearer token in the body.
func (c *Channel) sendUltramsg(ctx context.Context, creds Credentials, recipient, content string) error {
	endpoint := fmt.Sprintf("%s/%s/messages/chat", c.ultramsgBaseURL, creds.InstanceID)

	form := url.Values{}
	form.Set("token", creds.Token)
	form.Set("to", recipient)
	form.Set("body", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// sendTwilio posts form-encoded to Twilio's Messages resource, basic-auth'd
// with the account SID/auth token pair.
func (c *Channel) sendTwilio(ctx context.Context, creds Credentials, recipient, content string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.twilioBaseURL, creds.AccountSID)

	form := url.Values{}
	form.Set("To", "whatsapp:+"+recipient)
	form.Set("From", "whatsapp:"+creds.FromNumber)
	form.Set("Body", content)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	return c.do(req)
}
