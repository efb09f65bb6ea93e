package telegram

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchasebot/internal/model"
)

func decodeUpdate(t *testing.T, raw string) telego.Update {
	t.Helper()
	var u telego.Update
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return u
}

func TestToEventCommand(t *testing.T) {
	u := decodeUpdate(t, `{
		"update_id": 1001,
		"message": {
			"message_id": 5,
			"date": 1700000000,
			"chat": {"id": -100123, "type": "group"},
			"text": "/add@PurchaseBot  Bolt   (5)"
		}
	}`)

	now := time.Now()
	ev, ok := ToEvent(u, now)
	require.True(t, ok)
	assert.Equal(t, model.EventCommand, ev.Kind)
	assert.Equal(t, int64(1001), ev.UpdateID)
	assert.Equal(t, model.ChatID(-100123), ev.ChatID)
	assert.Equal(t, "add", ev.Command)
	assert.Equal(t, "Bolt (5)", ev.Args)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, now, ev.ReceivedAt)
}

func TestToEventCallback(t *testing.T) {
	u := decodeUpdate(t, `{
		"update_id": 1002,
		"callback_query": {
			"id": "cb-9",
			"from": {"id": 7, "is_bot": false, "first_name": "Ann"},
			"chat_instance": "x",
			"data": "remove_0",
			"message": {
				"message_id": 77,
				"date": 1700000000,
				"chat": {"id": 42, "type": "private"},
				"text": "Список закупок:"
			}
		}
	}`)

	ev, ok := ToEvent(u, time.Now())
	require.True(t, ok)
	assert.Equal(t, model.EventCallback, ev.Kind)
	assert.Equal(t, model.ChatID(42), ev.ChatID)
	assert.Equal(t, 77, ev.MessageID)
	assert.Equal(t, "cb-9", ev.CallbackID)
	assert.Equal(t, "remove_0", ev.CallbackData)
}

func TestToEventIgnoresPlainText(t *testing.T) {
	u := decodeUpdate(t, `{
		"update_id": 1003,
		"message": {"message_id": 1, "date": 0, "chat": {"id": 1, "type": "private"}, "text": "hello"}
	}`)
	_, ok := ToEvent(u, time.Now())
	assert.False(t, ok)

	_, ok = ToEvent(telego.Update{UpdateID: 1004}, time.Now())
	assert.False(t, ok)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		args    string
		ok      bool
	}{
		{"/list", "list", "", true},
		{"/ADD Milk", "add", "Milk", true},
		{"/add\nBolt (2)", "add", "Bolt (2)", true},
		{"/", "", "", false},
		{"", "", "", false},
		{"add Milk", "", "", false},
	}
	for _, tt := range tests {
		command, args, ok := parseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.command, command, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}
