package toolruntime

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// EmailSender abstracts gomail's dialer so tests can substitute a fake.
type EmailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// dialerSender adapts *gomail.Dialer to EmailSender.
type dialerSender struct{ dialer *gomail.Dialer }

func (d dialerSender) DialAndSend(m ...*gomail.Message) error { return d.dialer.DialAndSend(m...) }

// NewSMTPSender builds an EmailSender from ImplParams (host, port, username,
// password) — the declarative descriptor of an email-kind ToolDefinition.
func NewSMTPSender(params map[string]any) EmailSender {
	host, _ := params["host"].(string)
	port, _ := params["port"].(float64)
	username, _ := params["username"].(string)
	password, _ := params["password"].(string)
	return dialerSender{dialer: gomail.NewDialer(host, int(port), username, password)}
}

// executeEmail sends a message per an email-kind tool's declarative
// descriptor; args supply the per-call to/subject/body (§4.7 email kind).
func executeEmail(ctx context.Context, def *store.ToolDefinition, sender EmailSender, args map[string]any) *Result {
	to, _ := args["to"].(string)
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	if to == "" {
		return ErrorResult("email tool requires a \"to\" argument")
	}

	from, _ := def.ImplParams["from"].(string)
	if from == "" {
		from = "noreply@localhost"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := sender.DialAndSend(m); err != nil {
		return ErrorResult(fmt.Sprintf("email send failed: %v", err)).WithError(err)
	}
	return NewResult(fmt.Sprintf("email sent to %s", to))
}
