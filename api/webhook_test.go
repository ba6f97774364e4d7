package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (h *recordingHandler) HandleUpdate(_ context.Context, upd tgbotapi.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, upd)
}

// contextHandler records the context state an update is handled with.
type contextHandler struct {
	err         error
	hasDeadline bool
	calls       int
}

func (h *contextHandler) HandleUpdate(ctx context.Context, _ tgbotapi.Update) {
	h.calls++
	h.err = ctx.Err()
	_, h.hasDeadline = ctx.Deadline()
}

const testSecret = "s3cr3t_token-1"

func postUpdate(path, body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	return req
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestWebhookDispatchesUpdate(t *testing.T) {
	h := &recordingHandler{}
	srv := httptest.NewServer(NewRouter(Deps{Updates: h, WebhookSecret: testSecret}))
	defer srv.Close()

	body := `{"update_id":42,"message":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"},"text":"heat"}}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/webhook", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", testSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(h.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.updates))
	}
	upd := h.updates[0]
	if upd.UpdateID != 42 || upd.Message == nil || upd.Message.Text != "heat" || upd.Message.Chat.ID != 7 {
		t.Errorf("update = %+v", upd)
	}
}

func TestWebhookRejectsBadBody(t *testing.T) {
	h := &recordingHandler{}
	router := NewRouter(Deps{Updates: h, WebhookSecret: testSecret})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postUpdate("/api/webhook", "{not json", testSecret))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(h.updates) != 0 {
		t.Error("bad body reached the dispatcher")
	}
}

func TestWebhookCustomPathAndMethod(t *testing.T) {
	h := &recordingHandler{}
	router := NewRouter(Deps{Updates: h, WebhookPath: "/hook/secret", WebhookSecret: testSecret})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hook/secret", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, postUpdate("/hook/secret", `{"update_id":1}`, testSecret))
	if rec.Code != http.StatusOK || len(h.updates) != 1 {
		t.Errorf("POST status = %d, updates = %d", rec.Code, len(h.updates))
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "missing header", secret: ""},
		{name: "wrong token", secret: "guessed"},
		{name: "prefix of token", secret: testSecret[:4]},
		{name: "token with suffix", secret: testSecret + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			router := NewRouter(Deps{Updates: h, WebhookSecret: testSecret})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, postUpdate("/api/webhook", `{"update_id":9,"message":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"},"text":"/addmovie x"}}`, tt.secret))

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if len(h.updates) != 0 {
				t.Error("forged update reached the dispatcher")
			}
		})
	}
}

func TestWebhookNotMountedWithoutSecret(t *testing.T) {
	h := &recordingHandler{}
	router := NewRouter(Deps{Updates: h})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postUpdate("/api/webhook", `{"update_id":1}`, ""))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(h.updates) != 0 {
		t.Error("update dispatched without a configured secret")
	}
}

func TestWebhookDetachesFromRequestContext(t *testing.T) {
	h := &contextHandler{}
	router := NewRouter(Deps{Updates: h, WebhookSecret: testSecret, UpdateTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := postUpdate("/api/webhook", `{"update_id":3}`, testSecret).WithContext(ctx)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if h.calls != 1 {
		t.Fatalf("calls = %d, want 1", h.calls)
	}
	if h.err != nil {
		t.Errorf("update context err = %v, want nil after client disconnect", h.err)
	}
	if !h.hasDeadline {
		t.Error("update context has no deadline")
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		store  Pinger
		status int
		ready  bool
	}{
		{name: "no store", store: nil, status: http.StatusOK, ready: true},
		{name: "store up", store: stubPinger{}, status: http.StatusOK, ready: true},
		{name: "store down", store: stubPinger{err: errors.New("server selection timeout")}, status: http.StatusServiceUnavailable, ready: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Deps{Updates: &recordingHandler{}, Store: tt.store})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var got readyzResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Ready != tt.ready {
				t.Errorf("ready = %v, want %v", got.Ready, tt.ready)
			}
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	router := NewRouter(Deps{Updates: &recordingHandler{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var health healthzResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil || health.Status != "ok" {
		t.Errorf("healthz = %+v, %v", health, err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "moviebot_http_requests_total") {
		t.Errorf("metrics status = %d, body lacks request counter", rec.Code)
	}
}
