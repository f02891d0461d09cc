package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workqueue"
	"workqueue/internal/deadletter"
	"workqueue/internal/observability"
)

type Handlers struct {
	logger     *zap.Logger
	wq         *workqueue.WorkQueue
	deadLetter *deadletter.Store
	metrics    *observability.Metrics
}

func NewHandlers(logger *zap.Logger, wq *workqueue.WorkQueue, deadLetter *deadletter.Store, metrics *observability.Metrics) *Handlers {
	return &Handlers{logger: logger, wq: wq, deadLetter: deadLetter, metrics: metrics}
}

// HealthCheck handles GET /healthz.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

// Stats handles GET /stats, reporting the pool's live counters alongside
// its configured limits.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	h.wq.Lock()
	st := h.wq.Stat()
	h.wq.Unlock()
	return c.JSON(fiber.Map{
		"current":     st.Current,
		"available":   st.Available,
		"shutdown":    st.Shutdown,
		"max_workers": h.wq.MaxWorkers(),
		"timeout_ms":  h.wq.Timeout().Milliseconds(),
	})
}

type submitRequest struct {
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	ClientID uuid.UUID       `json:"client_id"`
}

// Submit handles POST /submit, the admin-API twin of the NATS bridge's
// handler — same request shape, same fire-and-forget Submit contract.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	if err := h.wq.Submit(req.Name, []byte(req.Payload)); err != nil {
		h.logger.Error("submit failed", zap.String("name", req.Name), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if h.metrics != nil {
		h.metrics.IncSubmitted()
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "submitted"})
}

// DeadLetters handles GET /dead-letters, a small operational window into
// work items whose function panicked.
func (h *Handlers) DeadLetters(c *fiber.Ctx) error {
	records, err := h.deadLetter.List(c.Context(), 100)
	if err != nil {
		h.logger.Error("dead letter list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not list dead letters"})
	}
	return c.JSON(fiber.Map{"dead_letters": records})
}
