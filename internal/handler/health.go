package handler

import (
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"purchasebot/internal/bot"
	"purchasebot/pkg/apierror"
	"purchasebot/pkg/response"
)

// LivenessText is the body of GET /.
const LivenessText = "🛒 Telegram Purchase Bot is running!"

// QueueStats is the read side of the ingestion queue.
type QueueStats interface {
	Depth() int
	Capacity() int
	Enqueued() uint64
}

// ProcessorStats is the read side of the update processor.
type ProcessorStats interface {
	Ready() <-chan struct{}
	State() bot.State
	Processed() uint64
}

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	queue     QueueStats
	processor ProcessorStats
	startTime time.Time
}

// New creates a new handler.
func New(queue QueueStats, processor ProcessorStats) *Handler {
	return &Handler{
		queue:     queue,
		processor: processor,
		startTime: time.Now(),
	}
}

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, LivenessText)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) ready() bool {
	select {
	case <-h.processor.Ready():
		return h.processor.State() != bot.StateStopping && h.processor.State() != bot.StateStopped
	default:
		return false
	}
}

// Ready handles GET /api/v1/ready. It fails until the webhook is registered
// and again once shutdown has begun.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		response.Error(w, apierror.ServiceUnavailable("processor is "+h.processor.State().String()))
		return
	}
	response.OK(w, map[string]bool{"ready": true})
}

// QueueStatus describes the ingestion queue.
type QueueStatus struct {
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
	Enqueued uint64 `json:"enqueued"`
}

// StatusResponse represents the unified status response for monitoring.
type StatusResponse struct {
	Service        string      `json:"service"`
	Status         string      `json:"status"`
	Timestamp      string      `json:"timestamp"`
	Started        string      `json:"started"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	ProcessorState string      `json:"processor_state"`
	Processed      uint64      `json:"processed"`
	Queue          QueueStatus `json:"queue"`
	Memory         string      `json:"memory"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := "ok"
	if !h.ready() {
		status = "degraded"
	}

	resp := StatusResponse{
		Service:        "purchasebot",
		Status:         status,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Started:        humanize.Time(h.startTime),
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
		ProcessorState: h.processor.State().String(),
		Processed:      h.processor.Processed(),
		Queue: QueueStatus{
			Depth:    h.queue.Depth(),
			Capacity: h.queue.Capacity(),
			Enqueued: h.queue.Enqueued(),
		},
		Memory: humanize.IBytes(memStats.Alloc),
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
