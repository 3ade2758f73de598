// Package email implements the email channel adapter (§4.8): inbound via
// IMAP polling (§6 EMAIL_IMAP_*), outbound via SMTP (§6 EMAIL_SMTP_*).
// Unlike WhatsApp/Telegram, which are webhook-pushed, email has no push
// transport configured here, so this channel owns a receive loop the way
// the teacher's whatsapp/telegram channels own their bridge/long-poll
// loops — generalized to IMAP's poll-and-mark-seen idiom.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"gopkg.in/gomail.v2"

	"github.com/nextlevelbuilder/orchhub/internal/channels"
)

const pollInterval = 30 * time.Second

// Inbound is one normalized message received over IMAP, handed to the
// channel's Processor (mirrors internal/wschannel.Inbound's narrow shape
// to avoid importing internal/ingress from a channel package).
type Inbound struct {
	From      string
	Subject   string
	Body      string
	MessageID string
}

// Processor runs a message through the core turn pipeline.
type Processor interface {
	ProcessTurn(ctx context.Context, channelType, channelUserID, content string) error
}

// Config wires Channel's IMAP/SMTP credentials and collaborators.
type Config struct {
	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string

	Processor Processor
}

// sender abstracts gomail's dialer so tests can substitute a fake,
// matching internal/toolruntime.EmailSender's shape.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type dialerSender struct{ dialer *gomail.Dialer }

func (d dialerSender) DialAndSend(m ...*gomail.Message) error { return d.dialer.DialAndSend(m...) }

// Channel polls an IMAP mailbox for new messages and sends replies over
// SMTP.
type Channel struct {
	*channels.BaseChannel
	cfg Config

	smtp sender

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an email channel from cfg.
func New(cfg Config) *Channel {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Channel{
		BaseChannel: channels.NewBaseChannel("email"),
		cfg:         cfg,
		smtp:        dialerSender{dialer: dialer},
	}
}

// Start begins the IMAP polling loop.
func (c *Channel) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.pollLoop(pollCtx)

	c.SetRunning(true)
	return nil
}

// Stop halts the polling loop and waits for it to exit.
func (c *Channel) Stop(_ context.Context) error {
	c.SetRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		select {
		case <-c.done:
		case <-time.After(10 * time.Second):
			slog.Warn("email.stop_timeout")
		}
	}
	return nil
}

// Send delivers content to channelUserID (an email address), satisfying
// internal/sendqueue.Adapter.
func (c *Channel) Send(_ context.Context, channelUserID, content string) error {
	from := c.cfg.FromAddress
	if from == "" {
		from = c.cfg.SMTPUsername
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", channelUserID)
	m.SetHeader("Subject", "Re: your message")
	m.SetBody("text/plain", content)

	return c.smtp.DialAndSend(m)
}

func (c *Channel) pollLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.pollOnce(ctx); err != nil {
				slog.Error("email.poll_failed", "error", err)
			}
		}
	}
}

// pollOnce connects to the IMAP mailbox, fetches unseen messages, and
// hands each to the processor before marking it seen.
func (c *Channel) pollOnce(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.IMAPHost, c.cfg.IMAPPort)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("imap dial: %w", err)
	}
	defer client.Close()

	if err := client.Login(c.cfg.IMAPUsername, c.cfg.IMAPPassword).Wait(); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return fmt.Errorf("imap select inbox: %w", err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.Search(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("imap search: %w", err)
	}

	seqNums := searchData.AllSeqNums()
	if len(seqNums) == 0 {
		return nil
	}

	fetchOptions := &imap.FetchOptions{
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{{}},
	}
	messages, err := client.Fetch(imap.SeqSetNum(seqNums...), fetchOptions).Collect()
	if err != nil {
		return fmt.Errorf("imap fetch: %w", err)
	}

	for _, msg := range messages {
		inbound, err := decodeMessage(msg)
		if err != nil {
			slog.Error("email.decode_failed", "error", err)
			continue
		}
		if c.cfg.Processor != nil {
			if err := c.cfg.Processor.ProcessTurn(ctx, "email", inbound.From, inbound.Body); err != nil {
				slog.Error("email.process_failed", "error", err, "message_id", inbound.MessageID)
			}
		}
	}

	seen := imap.StoreFlags{Op: imap.StoreFlagsAdd, Flags: []imap.Flag{imap.FlagSeen}}
	if err := client.Store(imap.SeqSetNum(seqNums...), &imap.StoreFlagsOptions{StoreFlags: seen}, nil).Wait(); err != nil {
		slog.Error("email.mark_seen_failed", "error", err)
	}

	return nil
}

// decodeMessage extracts the fields (§4.8 message shaping) this channel
// needs from a fetched IMAP message.
func decodeMessage(msg *imapclient.FetchMessageBuffer) (Inbound, error) {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return Inbound{}, fmt.Errorf("message missing envelope/from")
	}

	from := msg.Envelope.From[0]
	fromAddr := fmt.Sprintf("%s@%s", from.Mailbox, from.Host)

	var body string
	if len(msg.BodySection) > 0 {
		body = string(msg.BodySection[0].Bytes)
	}

	return Inbound{
		From:      fromAddr,
		Subject:   msg.Envelope.Subject,
		Body:      body,
		MessageID: msg.Envelope.MessageID,
	}, nil
}
