package model

import "time"

// EventKind distinguishes command messages from inline-button callbacks.
type EventKind string

const (
	EventCommand  EventKind = "command"
	EventCallback EventKind = "callback"
)

// Event is a decoded inbound update waiting for the processor.
type Event struct {
	ID        string    `json:"id"`
	UpdateID  int64     `json:"update_id"`
	Kind      EventKind `json:"kind"`
	ChatID    ChatID    `json:"chat_id"`
	MessageID int       `json:"message_id"`

	// Command events.
	Command string `json:"command,omitempty"`
	Args    string `json:"args,omitempty"`

	// Callback events.
	CallbackID   string `json:"callback_id,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// Choice is an inline button attached to an outgoing message.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}
