// Package nats is the network front door for the work queue: a NATS
// subscriber that decodes submission requests and calls
// workqueue.WorkQueue.Submit.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"workqueue"
	"workqueue/internal/ratelimit"
)

// DefaultSubject is the subject the bridge subscribes to for inbound
// submissions.
const DefaultSubject = "workqueue.submit"

// SubmitRequest is the wire shape a producer publishes to submit work.
type SubmitRequest struct {
	Name     string    `json:"name"`
	Payload  []byte    `json:"payload,omitempty"`
	ClientID uuid.UUID `json:"client_id"`
}

type Bridge struct {
	conn    *natsgo.Conn
	wq      *workqueue.WorkQueue
	limiter *ratelimit.Limiter
	logger  *zap.Logger
	subject string
	sub     *natsgo.Subscription
}

// Connect dials natsURL and returns a Bridge ready to Start.
func Connect(natsURL string, wq *workqueue.WorkQueue, limiter *ratelimit.Limiter, logger *zap.Logger) (*Bridge, error) {
	opts := []natsgo.Option{
		natsgo.Name("workqueue bridge"),
		natsgo.Timeout(10 * time.Second),
		natsgo.ReconnectWait(5 * time.Second),
		natsgo.MaxReconnects(-1),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logger.Error("nats disconnected", zap.Error(err))
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := natsgo.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect: %w", err)
	}

	return &Bridge{
		conn:    conn,
		wq:      wq,
		limiter: limiter,
		logger:  logger,
		subject: DefaultSubject,
	}, nil
}

// Start subscribes to the bridge's subject. Decode failures, limiter
// rejections and Submit errors are all traced, never fatal to the
// subscription — matching the core's "local recovery" posture for
// submit failures.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(b.subject, b.handle)
	if err != nil {
		return fmt.Errorf("bridge: subscribe %s: %w", b.subject, err)
	}
	b.sub = sub
	b.logger.Info("bridge subscribed", zap.String("subject", b.subject))
	return nil
}

func (b *Bridge) handle(msg *natsgo.Msg) {
	var req SubmitRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		b.logger.Warn("bridge: malformed submit request", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allowed, retryAfter, err := b.limiter.Allow(ctx, req.ClientID)
	if err != nil {
		b.logger.Warn("bridge: rate limiter error, allowing request", zap.Error(err))
	} else if !allowed {
		b.logger.Info("bridge: rejected by rate limiter",
			zap.String("client_id", req.ClientID.String()),
			zap.Duration("retry_after", retryAfter))
		return
	}

	if err := b.wq.Submit(req.Name, req.Payload); err != nil {
		b.logger.Error("bridge: submit failed",
			zap.String("name", req.Name),
			zap.String("client_id", req.ClientID.String()),
			zap.Error(err))
	}
}

func (b *Bridge) Close() error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	b.conn.Close()
	return nil
}
