// Package telegram implements the Telegram channel adapter (§4.8). Unlike
// the teacher's long-polling bot (internal/channels/telegram in
// vanducng-goclaw), spec.md's ingress contract is webhook-driven
// (`POST /webhooks/telegram`, identical shape to the WhatsApp webhooks) —
// a single bot token serves the whole deployment (§6 TELEGRAM_BOT_TOKEN),
// so this adapter only needs to send; internal/ingress owns receiving.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/orchhub/internal/channels"
)

// Channel sends replies via the Telegram Bot API's sendMessage call.
type Channel struct {
	*channels.BaseChannel
	bot *telego.Bot
}

// New creates a Telegram channel bound to the deployment's single bot
// token (§6 TELEGRAM_BOT_TOKEN).
func New(token string) (*Channel, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram"),
		bot:         bot,
	}, nil
}

// Start marks the adapter ready. Telegram updates arrive over the
// webhook internal/ingress serves, not a loop owned by this type.
func (c *Channel) Start(_ context.Context) error {
	c.SetRunning(true)
	return nil
}

// Stop marks the adapter stopped.
func (c *Channel) Stop(_ context.Context) error {
	c.SetRunning(false)
	return nil
}

// Send delivers content to the chat identified by channelUserID (a
// Telegram chat id), satisfying internal/sendqueue.Adapter.
func (c *Channel) Send(ctx context.Context, channelUserID, content string) error {
	chatID, err := parseChatID(channelUserID)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", channelUserID, err)
	}

	_, err = c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), content))
	return err
}

// parseChatID converts a string chat ID to int64.
func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}
