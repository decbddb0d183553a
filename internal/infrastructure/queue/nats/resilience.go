package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.Class {
	switch {
	case err == nil:
		return resilience.Class{}
	case resilience.IsContextDone(err):
		return resilience.Class{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err):
		return resilience.Class{Retryable: false, RecordFailure: false}
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.Class{Retryable: true, RecordFailure: true}
	}
	return resilience.Class{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
