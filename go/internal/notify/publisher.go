package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/events"
)

// Publisher is an interface that defines our publisher.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
	Close() error
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, env events.Envelope) error {
	log.Info().
		Str("event_id", env.ID.String()).
		Str("event_type", string(env.Type)).
		Str("session_id", env.SessionID).
		RawJSON("payload", env.Payload).
		Msg("session event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
