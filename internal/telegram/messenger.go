// Package telegram talks to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"purchasebot/internal/model"
)

// DefaultSendInterval keeps outgoing calls under the Bot API's global limit of
// about 30 messages per second.
const DefaultSendInterval = time.Second / 30

// ErrInvalidToken is returned when a bot token has no numeric bot id prefix.
var ErrInvalidToken = errors.New("invalid bot token")

// Options configures a Messenger.
type Options struct {
	// APIServer overrides the Bot API base URL.
	APIServer string
	// SendInterval is the minimum gap between API calls. Zero uses DefaultSendInterval.
	SendInterval time.Duration
	// WebhookSecret is sent back by Telegram in SecretTokenHeader on every update.
	WebhookSecret string
}

// SecretTokenHeader carries the webhook secret on inbound updates.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Messenger sends replies through the Bot API. Every call waits for the rate limiter.
type Messenger struct {
	bot     *telego.Bot
	limiter *rate.Limiter
	secret  string
}

// NewMessenger creates a Messenger for token.
func NewMessenger(token string, opts Options) (*Messenger, error) {
	botOpts := []telego.BotOption{telego.WithDiscardLogger()}
	if opts.APIServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(opts.APIServer))
	}

	bot, err := telego.NewBot(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	interval := opts.SendInterval
	if interval <= 0 {
		interval = DefaultSendInterval
	}

	return &Messenger{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		secret:  opts.WebhookSecret,
	}, nil
}

// BotID extracts the numeric bot id that prefixes a token ("<id>:<secret>").
func BotID(token string) (int64, error) {
	prefix, _, ok := strings.Cut(token, ":")
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// WebhookPath returns the path the bot receives updates on.
func WebhookPath(botID int64) string {
	return "/webhook-" + strconv.FormatInt(botID, 10)
}

func (m *Messenger) wait(ctx context.Context) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// RegisterWebhook points the bot at url.
func (m *Messenger) RegisterWebhook(ctx context.Context, url string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := m.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:         url,
		SecretToken: m.secret,
	}); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	log.Printf("[Telegram] Webhook registered: %s", url)
	return nil
}

// SendText sends a plain message to chat.
func (m *Messenger) SendText(ctx context.Context, chat model.ChatID, text string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if _, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(int64(chat)), text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chat, err)
	}
	return nil
}

// SendChoices sends text with one inline button per row.
func (m *Messenger) SendChoices(ctx context.Context, chat model.ChatID, text string, choices []model.Choice) error {
	if err := m.wait(ctx); err != nil {
		return err
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(c.Label).WithCallbackData(c.Data),
		))
	}

	msg := tu.Message(tu.ID(int64(chat)), text).WithReplyMarkup(tu.InlineKeyboard(rows...))
	if _, err := m.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to send list to %d: %w", chat, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press.
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if err := m.bot.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackID)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// EditText replaces the text of a message the bot sent earlier and drops its buttons.
func (m *Messenger) EditText(ctx context.Context, chat model.ChatID, messageID int, text string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	_, err := m.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(int64(chat)),
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("failed to edit message %d in %d: %w", messageID, chat, err)
	}
	return nil
}
