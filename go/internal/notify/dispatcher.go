package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/events"
)

type DispatcherConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:  64,
		MaxRetries: 3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Dispatcher publishes events off the caller's goroutine so a slow or
// unreachable broker never delays the timer.
type Dispatcher struct {
	publisher Publisher
	cfg       DispatcherConfig
	queue     chan events.Envelope

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

func NewDispatcher(publisher Publisher, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		cfg:       cfg,
		queue:     make(chan events.Envelope, cfg.QueueSize),
	}
}

// Start runs the publish loop until ctx is cancelled. Queued events are
// flushed before Start returns.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	for {
		select {
		case env := <-d.queue:
			d.publish(ctx, env)
		case <-ctx.Done():
			d.flush()
			return nil
		}
	}
}

// Enqueue schedules env for publishing. It never blocks; when the queue is
// full the event is dropped and logged.
func (d *Dispatcher) Enqueue(env events.Envelope) {
	select {
	case d.queue <- env:
	default:
		log.Warn().
			Str("event_id", env.ID.String()).
			Str("event_type", string(env.Type)).
			Msg("event queue full, dropping event")
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case env := <-d.queue:
			d.publish(ctx, env)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, env events.Envelope) {
	if err := d.publishWithRetry(ctx, env); err != nil {
		log.Error().
			Err(err).
			Str("event_id", env.ID.String()).
			Str("event_type", string(env.Type)).
			Msg("failed to publish event")
	}
}

// publishWithRetry attempts to publish an event with a linear backoff.
func (d *Dispatcher) publishWithRetry(ctx context.Context, env events.Envelope) error {
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := d.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := d.publisher.Publish(ctx, env); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", env.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", env.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", d.cfg.MaxRetries+1, lastErr)
}
