package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"purchasebot/internal/cache"
	"purchasebot/pkg/response"
)

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	cache     cache.Cache
	storeType string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(c cache.Cache, storeType, cacheType string) *AdminHandler {
	return &AdminHandler{
		cache:     c,
		storeType: storeType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	uptime := time.Since(h.startTime)
	stats["uptime_seconds"] = int64(uptime.Seconds())
	stats["uptime_human"] = uptime.Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc":      humanize.IBytes(memStats.Alloc),
		"sys":        humanize.IBytes(memStats.Sys),
		"heap_inuse": humanize.IBytes(memStats.HeapInuse),
		"num_gc":     memStats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}

	stats["cache"] = h.cacheStatus(r.Context())

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

func (h *AdminHandler) cacheStatus(ctx context.Context) map[string]interface{} {
	if h.cache == nil {
		return map[string]interface{}{"status": "not_configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := h.cache.Exists(ctx, "admin:ping"); err != nil {
		return map[string]interface{}{
			"type":   h.cacheType,
			"status": "error",
			"error":  err.Error(),
		}
	}
	return map[string]interface{}{
		"type":   h.cacheType,
		"status": "connected",
	}
}
