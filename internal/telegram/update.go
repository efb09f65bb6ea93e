package telegram

import (
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"purchasebot/internal/model"
	"purchasebot/pkg/uid"
)

// ToEvent converts a Bot API update into an event for the processor.
// Updates that carry neither a command nor a callback query are reported as not ok.
func ToEvent(update telego.Update, now time.Time) (model.Event, bool) {
	ev := model.Event{
		ID:         uid.ForUpdate(int64(update.UpdateID)),
		UpdateID:   int64(update.UpdateID),
		ReceivedAt: now,
	}

	switch {
	case update.Message != nil:
		command, args, ok := parseCommand(update.Message.Text)
		if !ok {
			return model.Event{}, false
		}
		ev.Kind = model.EventCommand
		ev.ChatID = model.ChatID(update.Message.Chat.ID)
		ev.MessageID = update.Message.MessageID
		ev.Command = command
		ev.Args = args
		return ev, true

	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.Message == nil {
			return model.Event{}, false
		}
		ev.Kind = model.EventCallback
		ev.ChatID = model.ChatID(q.Message.GetChat().ID)
		ev.MessageID = q.Message.GetMessageID()
		ev.CallbackID = q.ID
		ev.CallbackData = q.Data
		return ev, true
	}

	return model.Event{}, false
}

// parseCommand splits "/add@PurchaseBot Bolt (5)" into "add" and "Bolt (5)".
func parseCommand(text string) (string, string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", "", false
	}

	command, _, _ := strings.Cut(fields[0][1:], "@")
	if command == "" {
		return "", "", false
	}
	return strings.ToLower(command), strings.Join(fields[1:], " "), true
}
