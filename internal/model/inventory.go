package model

import "strconv"

// ChatID identifies a chat. All purchase-list state is partitioned by it.
type ChatID int64

// TableTitle returns the name of the chat's sub-table.
func (c ChatID) TableTitle() string {
	return strconv.FormatInt(int64(c), 10)
}

// Entry is one purchase-list line.
// Position is the rank of the entry in the chat's list at read time; it is not stored.
type Entry struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// InventoryStats summarizes a chat's list.
type InventoryStats struct {
	Entries int `json:"entries"`
	Units   int `json:"units"`
}
