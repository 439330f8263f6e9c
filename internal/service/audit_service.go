package service

import (
	"context"
	"log/slog"

	"tenant-auth-core/internal/event"
)

// AuditService writes every security event from the bus to the structured log.
type AuditService struct {
	bus    event.Bus
	logger *slog.Logger
}

func NewAuditService(bus event.Bus, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{bus: bus, logger: logger.With("component", "audit")}
}

// Run consumes events until ctx is cancelled.
func (s *AuditService) Run(ctx context.Context) {
	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.record(e)
		}
	}
}

func (s *AuditService) record(e event.Event) {
	attrs := []any{
		"event_id", e.ID,
		"type", string(e.Type),
		"at", e.Timestamp,
	}
	if e.ActorID != "" {
		attrs = append(attrs, "actor", e.ActorID)
	}
	for k, v := range e.Payload {
		attrs = append(attrs, k, v)
	}

	switch e.Type {
	case event.TypeLoginFailed, event.TypeRefreshRejected, event.TypeAccessDenied:
		s.logger.Warn("security event", attrs...)
	default:
		s.logger.Info("security event", attrs...)
	}
}
