package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"purchasebot/pkg/uid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for request ID.
const RequestIDKey contextKey = "request_id"

const updateTagKey contextKey = "update_tag"

// updateTag carries the Telegram update a webhook request turned out to hold.
// Handlers fill it in after decoding; the access log reads it afterwards.
type updateTag struct {
	mu       sync.Mutex
	set      bool
	updateID int64
	chatID   int64
}

// RequestID is a middleware that adds a unique request ID to each request.
// An incoming X-Request-ID is kept only when it is a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if !uid.IsValid(requestID) {
			requestID = uid.New()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, updateTagKey, &updateTag{})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// TagUpdate records which update and chat the current request delivered.
// It is a no-op outside RequestID.
func TagUpdate(ctx context.Context, updateID, chatID int64) {
	tag, ok := ctx.Value(updateTagKey).(*updateTag)
	if !ok {
		return
	}
	tag.mu.Lock()
	tag.set, tag.updateID, tag.chatID = true, updateID, chatID
	tag.mu.Unlock()
}

// GetUpdateTag returns the update and chat recorded by TagUpdate.
func GetUpdateTag(ctx context.Context) (updateID, chatID int64, ok bool) {
	tag, found := ctx.Value(updateTagKey).(*updateTag)
	if !found {
		return 0, 0, false
	}
	tag.mu.Lock()
	defer tag.mu.Unlock()
	return tag.updateID, tag.chatID, tag.set
}

// requestRef formats the request id and, when known, the update it carried.
func requestRef(ctx context.Context) string {
	ref := "rid=" + GetRequestID(ctx)
	if updateID, chatID, ok := GetUpdateTag(ctx); ok {
		ref += " update=" + strconv.FormatInt(updateID, 10) + " chat=" + strconv.FormatInt(chatID, 10)
	}
	return ref
}
