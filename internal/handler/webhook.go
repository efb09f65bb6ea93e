package handler

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mymmrac/telego"

	"purchasebot/internal/middleware"
	"purchasebot/internal/model"
	"purchasebot/internal/telegram"
)

const maxUpdateBytes = 1 << 20

// Enqueuer accepts events for the processor without blocking.
type Enqueuer interface {
	Enqueue(ev model.Event) error
}

// WebhookMetrics counts webhook outcomes.
type WebhookMetrics interface {
	Received(kind string)
	Rejected(reason string)
}

// WebhookHandler receives Telegram updates. It only decodes and enqueues;
// processing happens on the update processor.
type WebhookHandler struct {
	botID   int64
	secret  string
	queue   Enqueuer
	metrics WebhookMetrics
	// onQueueFault is called when the queue refuses an event. The process
	// cannot make progress after that, so the default exits.
	onQueueFault func(err error)
	now          func() time.Time
}

// NewWebhookHandler creates a webhook handler for botID. metrics may be nil.
func NewWebhookHandler(botID int64, queue Enqueuer, metrics WebhookMetrics) *WebhookHandler {
	return &WebhookHandler{
		botID:   botID,
		queue:   queue,
		metrics: metrics,
		onQueueFault: func(err error) {
			log.Fatalf("[Webhook] Ingestion queue fault: %v", err)
		},
		now: time.Now,
	}
}

// SetSecret makes the handler drop updates whose secret token header differs.
func (h *WebhookHandler) SetSecret(secret string) {
	h.secret = secret
}

// SetQueueFaultHandler replaces the queue fault callback.
func (h *WebhookHandler) SetQueueFaultHandler(fn func(err error)) {
	h.onQueueFault = fn
}

func (h *WebhookHandler) rejected(reason string) {
	if h.metrics != nil {
		h.metrics.Rejected(reason)
	}
}

// Receive handles POST /webhook-{botID}. Every outcome answers 200 "OK" so
// Telegram does not redeliver updates the bot cannot use.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	defer writeOK(w)

	botID, err := strconv.ParseInt(chi.URLParam(r, "botID"), 10, 64)
	if err != nil || botID != h.botID {
		log.Printf("[Webhook] Ignoring update for unknown bot %q", chi.URLParam(r, "botID"))
		h.rejected("bot_id")
		return
	}

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(telegram.SecretTokenHeader)), []byte(h.secret)) != 1 {
		log.Printf("[Webhook] Ignoring update with bad secret token from %s", r.RemoteAddr)
		h.rejected("secret")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err != nil {
		log.Printf("[Webhook] Failed to read body: %v", err)
		h.rejected("read")
		return
	}

	var update telego.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Printf("[Webhook] Invalid update JSON: %v", err)
		h.rejected("bad_json")
		return
	}

	ev, ok := telegram.ToEvent(update, h.now())
	if !ok {
		h.rejected("unsupported")
		return
	}
	middleware.TagUpdate(r.Context(), ev.UpdateID, int64(ev.ChatID))

	if err := h.queue.Enqueue(ev); err != nil {
		h.rejected("queue")
		h.onQueueFault(err)
		return
	}
	if h.metrics != nil {
		h.metrics.Received(string(ev.Kind))
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

