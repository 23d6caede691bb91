package notify

import (
	"context"
	"log/slog"
)

// LogPublisher stands in when no broker is configured.
type LogPublisher struct{ log *slog.Logger }

func NewLogPublisher(log *slog.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(_ context.Context, routingKey string, body any) error {
	p.log.Info("ledger event", "routing_key", routingKey, "event", body)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
