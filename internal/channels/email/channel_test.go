package email

import (
	"context"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/nextlevelbuilder/orchhub/internal/channels"
)

func newTestBase() *channels.BaseChannel { return channels.NewBaseChannel("email") }

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSend_UsesConfiguredFromAddress(t *testing.T) {
	fs := &fakeSender{}
	ch := &Channel{
		BaseChannel: newTestBase(),
		cfg:         Config{FromAddress: "support@example.com"},
		smtp:        fs,
	}

	if err := ch.Send(context.Background(), "user@example.com", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected one message sent, got %d", len(fs.sent))
	}
	if got := fs.sent[0].GetHeader("To"); len(got) != 1 || got[0] != "user@example.com" {
		t.Fatalf("unexpected To header: %v", got)
	}
}

func TestSend_FallsBackToSMTPUsername(t *testing.T) {
	fs := &fakeSender{}
	ch := &Channel{
		BaseChannel: newTestBase(),
		cfg:         Config{SMTPUsername: "bot@example.com"},
		smtp:        fs,
	}

	if err := ch.Send(context.Background(), "user@example.com", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := fs.sent[0].GetHeader("From"); len(got) != 1 || got[0] != "bot@example.com" {
		t.Fatalf("unexpected From header: %v", got)
	}
}

func TestSend_PropagatesDialError(t *testing.T) {
	fs := &fakeSender{err: errSend("smtp unavailable")}
	ch := &Channel{BaseChannel: newTestBase(), smtp: fs}

	if err := ch.Send(context.Background(), "user@example.com", "hi"); err == nil {
		t.Fatal("expected error to propagate")
	}
}

type errSend string

func (e errSend) Error() string { return string(e) }

func TestStartStop_TogglesRunning(t *testing.T) {
	ch := &Channel{BaseChannel: newTestBase(), smtp: &fakeSender{}}
	if ch.IsRunning() {
		t.Fatal("should not be running initially")
	}
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ch.IsRunning() {
		t.Fatal("expected running after Start")
	}
	if err := ch.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ch.IsRunning() {
		t.Fatal("expected stopped after Stop")
	}
}
