package bot

import (
	"context"
	"time"

	"purchasebot/internal/model"
)

// Messenger delivers replies to chats.
type Messenger interface {
	RegisterWebhook(ctx context.Context, url string) error
	SendText(ctx context.Context, chat model.ChatID, text string) error
	SendChoices(ctx context.Context, chat model.ChatID, text string, choices []model.Choice) error
	AnswerCallback(ctx context.Context, callbackID string) error
	EditText(ctx context.Context, chat model.ChatID, messageID int, text string) error
}

// Inventory is the per-chat purchase list the commands operate on.
type Inventory interface {
	List(ctx context.Context, chat model.ChatID) ([]string, error)
	AddOrMerge(ctx context.Context, chat model.ChatID, name string, qty int) (string, error)
	RemoveAt(ctx context.Context, chat model.ChatID, position int) (string, error)
	Clear(ctx context.Context, chat model.ChatID) error
	Stats(ctx context.Context, chat model.ChatID) (model.InventoryStats, error)
}

// Source yields events to process.
type Source interface {
	Dequeue(timeout time.Duration) (model.Event, bool)
}

// Recorder receives per-event processing outcomes.
type Recorder interface {
	Processed(command, outcome string, elapsed time.Duration)
	StoreError()
}

type nopRecorder struct{}

func (nopRecorder) Processed(string, string, time.Duration) {}
func (nopRecorder) StoreError()                            {}
