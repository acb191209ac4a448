package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (h *recordingHandler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, upd)
}

func TestHealthzReflectsReadiness(t *testing.T) {
	s := NewServer(zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestWebhookChecksSecret(t *testing.T) {
	s := NewServer(zerolog.Nop())
	h := &recordingHandler{}
	s.MountWebhook("s3cret", h)

	body := `{"update_id":1,"chat_join_request":{"chat":{"id":-100,"type":"channel"},"from":{"id":42,"first_name":"Ivan"},"date":1,"invite_link":{"invite_link":"https://t.me/+abc"}}}`

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot/webhook/wrong", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for wrong secret, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot/webhook/s3cret", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(h.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(h.updates))
	}
	jr := h.updates[0].ChatJoinRequest
	if jr == nil || jr.Chat.ID != -100 || jr.InviteLink == nil || jr.InviteLink.InviteLink != "https://t.me/+abc" {
		t.Fatalf("unexpected update %+v", h.updates[0])
	}
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	s := NewServer(zerolog.Nop())
	s.MountWebhook("s3cret", &recordingHandler{})

	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot/webhook/s3cret", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestShutdownBeforeServeStopsServer(t *testing.T) {
	s := NewServer(zerolog.Nop())
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server kept running after shutdown")
	}
}

func TestShutdownStopsRunningServer(t *testing.T) {
	s := NewServer(zerolog.Nop())
	s.SetReady(true)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
}
