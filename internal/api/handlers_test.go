package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"workqueue"
)

func init() {
	workqueue.Register("api-test-noop", func(_ int, _ any) {})
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	wq, err := workqueue.New("thread")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		wq.Destroy()
	})
	return NewHandlers(zap.NewNop(), wq, nil, nil)
}

func TestHealthEndpoint(t *testing.T) {
	handlers := newTestHandlers(t)

	app := fiber.New()
	app.Get("/healthz", handlers.HealthCheck)

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestSubmitRequiresName(t *testing.T) {
	handlers := newTestHandlers(t)

	app := fiber.New()
	app.Post("/submit", handlers.Submit)

	body, _ := json.Marshal(map[string]any{})
	req := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("expected status 400 for missing name, got %d", resp.StatusCode)
	}
}

func TestSubmitAccepted(t *testing.T) {
	handlers := newTestHandlers(t)

	app := fiber.New()
	app.Post("/submit", handlers.Submit)

	body, _ := json.Marshal(map[string]any{"name": "api-test-noop"})
	req := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 202 {
		t.Errorf("expected status 202, got %d", resp.StatusCode)
	}
}
