package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/adapters/submission"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

// Bus consumes import submissions from a queue group and announces finished
// imports on the outcome subject.
type Bus struct {
	conn         *nats.Conn
	subjects     Subjects
	executor     *resilience.Executor
	drainTimeout time.Duration
	logger       *slog.Logger
}

type Subjects struct {
	Submissions string
	QueueGroup  string
	Outcomes    string
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// DrainTimeout bounds the wait for buffered submissions on shutdown.
	DrainTimeout         time.Duration
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url string, subjects Subjects, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if subjects.QueueGroup == "" {
		subjects.QueueGroup = "importers"
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 2 * time.Minute
	}

	conn, err := nats.Connect(
		url,
		nats.Name("wildlife-rescue-ingest"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:         conn,
		subjects:     subjects,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
		logger:       logger,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

// PublishImportOutcome implements ports.OutcomePublisher. Without an outcome
// subject it does nothing.
func (b *Bus) PublishImportOutcome(ctx context.Context, outcome domain.ImportOutcome) error {
	if b.subjects.Outcomes == "" {
		return nil
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal import outcome: %w", err)
	}

	err = b.executor.Do(ctx, "nats.publish_outcome", func(context.Context) error {
		if err := b.conn.Publish(b.subjects.Outcomes, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// SubmissionHandler imports one decoded submission. Reply is what gets sent
// back when the publisher used request/reply.
type SubmissionHandler func(ctx context.Context, sub domain.Submission) (reply any)

// SubscribeSubmissions consumes the submission subject until ctx is done and
// then drains in-flight messages. Messages already buffered when ctx ends are
// still imported, so each one gets its audit entry and reply.
func (b *Bus) SubscribeSubmissions(ctx context.Context, maxPayload int, handler SubmissionHandler) error {
	sub, err := b.conn.QueueSubscribe(b.subjects.Submissions, b.subjects.QueueGroup, b.messageHandler(ctx, maxPayload, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	b.logger.Info("nats_subscribed", "subject", b.subjects.Submissions, "queue_group", b.subjects.QueueGroup)

	<-ctx.Done()
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	select {
	case <-closed:
	case <-time.After(b.drainTimeout):
		b.logger.Warn("nats_drain_timeout", "subject", b.subjects.Submissions, "timeout", b.drainTimeout)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// messageHandler runs imports on a context that survives ctx cancellation so
// messages dispatched during Drain still complete.
func (b *Bus) messageHandler(ctx context.Context, maxPayload int, handler SubmissionHandler) nats.MsgHandler {
	importCtx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		b.handle(importCtx, msg, maxPayload, handler)
	}
}

func (b *Bus) handle(ctx context.Context, msg *nats.Msg, maxPayload int, handler SubmissionHandler) {
	sub, err := submission.Decode(msg.Data, maxPayload)
	if err != nil {
		b.logger.Warn("nats_submission_rejected", "subject", msg.Subject, "bytes", len(msg.Data), "error", err)
		b.reply(msg, map[string]string{"status": "rejected", "message": err.Error()})
		return
	}
	b.reply(msg, handler(ctx, sub))
}

func (b *Bus) reply(msg *nats.Msg, body any) {
	if msg.Reply == "" || body == nil {
		return
	}
	data, err := json.Marshal(body)
	if err != nil {
		b.logger.Error("nats_reply_marshal_failed", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("nats_reply_failed", "reply", msg.Reply, "error", err)
	}
}
