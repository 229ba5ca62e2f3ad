// Package events announces completed turns to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/PabloGalante/minidxo/internal/domain"
)

const (
	SubjectTurnCompleted = "minidxo.turn.completed"
	SubjectTurnFailed    = "minidxo.turn.failed"
)

// Publisher is the subset of *nats.Conn the publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc   *nats.Conn
	conn Publisher
}

// NewNATSPublisher connects to natsURL and keeps reconnecting in the
// background.
func NewNATSPublisher(natsURL string) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("minidxo"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{nc: nc, conn: nc}, nil
}

// NewPublisherWith wraps an existing connection; used in tests.
func NewPublisherWith(conn Publisher) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) PublishTurn(_ context.Context, evt domain.TurnEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal turn event: %w", err)
	}

	subject := SubjectTurnCompleted
	if evt.Failed {
		subject = SubjectTurnFailed
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) PublishTurn(context.Context, domain.TurnEvent) error {
	return nil
}
