package router

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchasebot/internal/bot"
	"purchasebot/internal/cache"
	"purchasebot/internal/handler"
	"purchasebot/internal/metrics"
	"purchasebot/internal/middleware"
	"purchasebot/internal/model"
	"purchasebot/internal/queue"
	"purchasebot/internal/repository"
	"purchasebot/internal/service"
)

const botID = 123456

type nopMessenger struct{}

func (nopMessenger) RegisterWebhook(context.Context, string) error {
	return nil
}

func (nopMessenger) SendText(context.Context, model.ChatID, string) error {
	return nil
}

func (nopMessenger) AnswerCallback(context.Context, string) error {
	return nil
}

func (nopMessenger) EditText(context.Context, model.ChatID, int, string) error {
	return nil
}

func (nopMessenger) SendChoices(context.Context, model.ChatID, string, []model.Choice) error {
	return nil
}

type testServer struct {
	router    http.Handler
	queue     *queue.Queue
	processor *bot.Processor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	q := queue.New(0)
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })

	inv := service.NewInventoryService(repository.NewMemoryRowStore(), cache.NewTableCache(mem))
	m := metrics.New(q.Depth)
	p := bot.NewProcessor(bot.ProcessorConfig{}, q, bot.NewCommands(inv, nopMessenger{}, m), nopMessenger{}, mem, m)

	r := New(Config{
		Handler:        handler.New(q, p),
		WebhookHandler: handler.NewWebhookHandler(botID, q, m),
		AdminHandler:   handler.NewAdminHandler(mem, "memory", "memory"),
		Metrics:        m.Handler(),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: []string{"secret"}}),
	})
	return &testServer{router: r, queue: q, processor: p}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRootLiveness(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.LivenessText, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestWebhookRoute(t *testing.T) {
	s := newTestServer(t)
	update := `{"update_id": 1, "message": {"message_id": 1, "date": 1700000000, "chat": {"id": 42, "type": "private"}, "text": "/list"}}`

	rec := s.do("POST", "/webhook-123456", update)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, 1, s.queue.Depth())

	rec = s.do("POST", "/webhook-999", update)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, 1, s.queue.Depth())
}

func TestStatusAndReady(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = s.do("GET", "/api/v1/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, s.processor.Start(context.Background()))
	rec = s.do("GET", "/api/v1/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("GET", "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                   `json:"success"`
		Data    handler.StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, "RUNNING", body.Data.ProcessorState)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do("GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "purchasebot_queue_depth")
}

func TestAdminRequiresAPIKey(t *testing.T) {
	s := newTestServer(t)

	rec := s.do("GET", "/api/v1/admin/stats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("GET", "/api/v1/admin/stats", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("GET", "/api/v1/admin/stats", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store_type":"memory"`)
}

func TestWebhookToProcessor(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.processor.Start(context.Background()))
	go s.processor.Run(context.Background())
	defer s.processor.Stop()

	update := `{"update_id": 77, "message": {"message_id": 1, "date": 1700000000, "chat": {"id": 5, "type": "private"}, "text": "/add Bolt (5)"}}`
	s.do("POST", "/webhook-123456", update)
	s.do("POST", "/webhook-123456", update)

	require.Eventually(t, func() bool { return s.processor.Processed() == 2 }, 5*time.Second, 5*time.Millisecond)
}

func TestRequestLogNamesUpdate(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	s := newTestServer(t)
	update := `{"update_id": 31, "message": {"message_id": 1, "date": 1700000000, "chat": {"id": 8, "type": "private"}, "text": "/list"}}`
	s.do("POST", "/webhook-123456", update)

	assert.Contains(t, buf.String(), "[HTTP] POST /webhook-123456")
	assert.Contains(t, buf.String(), "update=31 chat=8")
}

func TestQuietProbePaths(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	r := New(Config{
		Handler:    handler.New(queue.New(0), nil),
		QuietPaths: ProbePaths,
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, buf.String(), "/api/v1/health")
}
