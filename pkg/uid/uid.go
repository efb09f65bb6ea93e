package uid

import (
	"strconv"

	"github.com/google/uuid"
)

// updateSpace namespaces the name-based ids derived from Telegram update ids.
var updateSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://core.telegram.org/bots/api#update"))

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// ForUpdate derives a stable identifier from a Telegram update id, so every
// redelivery of one update carries the same event id.
func ForUpdate(updateID int64) string {
	return uuid.NewSHA1(updateSpace, []byte(strconv.FormatInt(updateID, 10))).String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
