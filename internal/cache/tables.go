package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"purchasebot/internal/model"
	"purchasebot/internal/repository"
)

// TableCache maps a chat to its sub-table handle. Entries are written once and
// never evicted or invalidated: a worksheet renamed or deleted outside the bot
// is not noticed until the process restarts (or, with Redis, until the key is
// removed by hand).
type TableCache struct {
	store Cache
}

// NewTableCache creates a handle cache on top of store.
func NewTableCache(store Cache) *TableCache {
	return &TableCache{store: store}
}

func tableKey(chat model.ChatID) string {
	return "table:" + chat.TableTitle()
}

// Get returns the cached handle for chat.
func (c *TableCache) Get(ctx context.Context, chat model.ChatID) (repository.Handle, bool, error) {
	data, err := c.store.Get(ctx, tableKey(chat))
	if errors.Is(err, ErrCacheMiss) {
		return repository.Handle{}, false, nil
	}
	if err != nil {
		return repository.Handle{}, false, fmt.Errorf("failed to read table cache: %w", err)
	}

	var h repository.Handle
	if err := json.Unmarshal(data, &h); err != nil {
		return repository.Handle{}, false, fmt.Errorf("failed to decode cached handle: %w", err)
	}
	return h, true, nil
}

// Put records the handle for chat without expiry.
func (c *TableCache) Put(ctx context.Context, chat model.ChatID, h repository.Handle) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, tableKey(chat), data, 0)
}
