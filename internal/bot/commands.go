package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"purchasebot/internal/metrics"
	"purchasebot/internal/model"
	"purchasebot/internal/service"
	"purchasebot/pkg/itemcodec"
)

// Reply texts.
const (
	UsageText = "🛒 Бот для закупок\n\n" +
		"Команды:\n" +
		"/add <артикул> [(кол-во)] — добавить\n" +
		"/list — показать список\n" +
		"/clear — очистить\n" +
		"/stats — статистика"
	AddUsageText     = "Использование: /add <артикул> [(кол-во)]"
	AddedPrefix      = "✅ Добавлено: "
	EmptyListText    = "Список пуст 🛒"
	ListHeaderText   = "Список закупок:"
	BoughtPrefix     = "✅ Куплено: "
	RemovedPrefix    = "✅ Убрано: "
	NotFoundText     = "Позиция не найдена."
	RemoveFailedText = "Ошибка удаления."
	ClearedText      = "Список очищен 🧹"
	StoreFailedText  = "⚠️ Таблица недоступна, попробуйте позже."

	removePrefix = "remove_"
)

// errUsage marks malformed command input. It is answered, never logged as a failure.
var errUsage = errors.New("usage")

// Commands implements the bot commands on top of an Inventory.
type Commands struct {
	inventory Inventory
	messenger Messenger
	recorder  Recorder
}

// NewCommands creates the command set.
func NewCommands(inventory Inventory, messenger Messenger, recorder Recorder) *Commands {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Commands{inventory: inventory, messenger: messenger, recorder: recorder}
}

// Handle runs the command or callback carried by ev and returns an outcome label.
// Store failures are answered here; only messenger errors are returned.
func (c *Commands) Handle(ctx context.Context, ev model.Event) (string, error) {
	var err error
	switch ev.Kind {
	case model.EventCommand:
		switch ev.Command {
		case "start", "help":
			err = c.messenger.SendText(ctx, ev.ChatID, UsageText)
		case "add":
			err = c.Add(ctx, ev.ChatID, ev.Args)
		case "list":
			err = c.List(ctx, ev.ChatID)
		case "clear":
			err = c.Clear(ctx, ev.ChatID)
		case "stats":
			err = c.Stats(ctx, ev.ChatID)
		default:
			return metrics.OutcomeIgnored, nil
		}
	case model.EventCallback:
		err = c.Callback(ctx, ev)
	default:
		return metrics.OutcomeIgnored, nil
	}

	if err != nil {
		return metrics.OutcomeFailed, err
	}
	return metrics.OutcomeOK, nil
}

// storeFailed answers a chat after a failed inventory call.
func (c *Commands) storeFailed(ctx context.Context, chat model.ChatID, err error) error {
	if !errors.Is(err, service.ErrStoreUnavailable) {
		return err
	}
	c.recorder.StoreError()
	return c.messenger.SendText(ctx, chat, StoreFailedText)
}

// parseAdd splits the joined /add arguments into name and quantity.
func parseAdd(args string) (string, int, error) {
	if strings.TrimSpace(args) == "" {
		return "", 0, errUsage
	}
	name, qty := itemcodec.Parse(args)
	if name == "" {
		return "", 0, errUsage
	}
	return name, qty, nil
}

// Add handles /add.
func (c *Commands) Add(ctx context.Context, chat model.ChatID, args string) error {
	name, qty, err := parseAdd(args)
	if err != nil {
		return c.messenger.SendText(ctx, chat, AddUsageText)
	}

	if _, err := c.inventory.AddOrMerge(ctx, chat, name, qty); err != nil {
		return c.storeFailed(ctx, chat, err)
	}
	return c.messenger.SendText(ctx, chat, AddedPrefix+itemcodec.Format(name, qty))
}

// List handles /list. Every entry gets a button bound to its current position.
func (c *Commands) List(ctx context.Context, chat model.ChatID) error {
	items, err := c.inventory.List(ctx, chat)
	if err != nil {
		return c.storeFailed(ctx, chat, err)
	}
	if len(items) == 0 {
		return c.messenger.SendText(ctx, chat, EmptyListText)
	}

	choices := make([]model.Choice, len(items))
	for i, item := range items {
		choices[i] = model.Choice{
			Label: BoughtPrefix + item,
			Data:  removePrefix + strconv.Itoa(i),
		}
	}
	return c.messenger.SendChoices(ctx, chat, ListHeaderText, choices)
}

// Clear handles /clear.
func (c *Commands) Clear(ctx context.Context, chat model.ChatID) error {
	if err := c.inventory.Clear(ctx, chat); err != nil {
		return c.storeFailed(ctx, chat, err)
	}
	return c.messenger.SendText(ctx, chat, ClearedText)
}

// Stats handles /stats.
func (c *Commands) Stats(ctx context.Context, chat model.ChatID) error {
	stats, err := c.inventory.Stats(ctx, chat)
	if err != nil {
		return c.storeFailed(ctx, chat, err)
	}

	text := fmt.Sprintf("📊 Позиций: %s\nВсего единиц: %s",
		humanize.Comma(int64(stats.Entries)), humanize.Comma(int64(stats.Units)))
	return c.messenger.SendText(ctx, chat, text)
}

// Callback handles an inline button press. Only remove_<position> is known.
func (c *Commands) Callback(ctx context.Context, ev model.Event) error {
	if err := c.messenger.AnswerCallback(ctx, ev.CallbackID); err != nil {
		return err
	}

	raw, ok := strings.CutPrefix(ev.CallbackData, removePrefix)
	if !ok {
		return nil
	}
	position, err := strconv.Atoi(raw)
	if err != nil {
		return c.messenger.EditText(ctx, ev.ChatID, ev.MessageID, RemoveFailedText)
	}
	return c.RemoveByPosition(ctx, ev.ChatID, ev.MessageID, position)
}

// RemoveByPosition removes the entry at position as of a fresh read of the list
// and rewrites the list message with the result. The position is only checked
// for range; if the list changed since it was rendered, a different entry may
// be removed.
func (c *Commands) RemoveByPosition(ctx context.Context, chat model.ChatID, messageID, position int) error {
	removed, err := c.inventory.RemoveAt(ctx, chat, position)
	switch {
	case errors.Is(err, service.ErrIndexOutOfRange):
		return c.messenger.EditText(ctx, chat, messageID, NotFoundText)
	case err != nil:
		if errors.Is(err, service.ErrStoreUnavailable) {
			c.recorder.StoreError()
		}
		return c.messenger.EditText(ctx, chat, messageID, RemoveFailedText)
	}
	return c.messenger.EditText(ctx, chat, messageID, RemovedPrefix+removed)
}
