package broadcast

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/session"
)

// FrameTerminator ends every frame written to a stream sink.
const FrameTerminator byte = 0

// Sink is one registered stream destination
type Sink struct {
	ID       uuid.UUID
	Override string
	AddedAt  time.Time

	w io.Writer
}

// SinkInfo describes a registered sink without exposing its writer.
type SinkInfo struct {
	ID       string    `json:"id"`
	Override string    `json:"override,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

type flusher interface {
	Flush() error
}

// Broadcaster renders one status line per tick and fans it out to an optional
// console and an ordered roster of stream sinks. A sink whose write fails is
// dropped in the same pass; the console is disabled for good on its first
// failure. Neither failure is reported to the caller.
type Broadcaster struct {
	// mu guards the roster and the console; it is shared by Write and AddStream.
	mu      sync.Mutex
	console io.Writer
	sinks   []*Sink
	buf     bytes.Buffer
}

// New creates a broadcaster. A nil console or quiet disables console output.
func New(console io.Writer, quiet bool) *Broadcaster {
	b := &Broadcaster{}
	if !quiet {
		b.console = console
	}
	return b
}

// Write renders the status of sess to the console and every sink. It never
// returns an error for sink failures.
func (b *Broadcaster) Write(sess *session.Session, d time.Duration, phase session.Phase) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.console != nil {
		b.buf.Reset()
		b.buf.WriteString(sess.Display(d, phase, nil))
		if err := b.writeConsole(); err != nil {
			log.Warn().Err(err).Msg("console write failed, disabling console output")
			b.console = nil
		}
	}

	kept := b.sinks[:0]
	for _, s := range b.sinks {
		b.buf.Reset()
		b.buf.WriteString(sess.Display(d, phase, sess.Override(s.Override)))
		b.buf.WriteByte(FrameTerminator)

		if _, err := s.w.Write(b.buf.Bytes()); err != nil {
			log.Info().
				Err(err).
				Str("sink_id", s.ID.String()).
				Str("override", s.Override).
				Msg("sink write failed, removing sink")
			closeSink(s)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(b.sinks); i++ {
		b.sinks[i] = nil
	}
	b.sinks = kept

	return nil
}

func (b *Broadcaster) writeConsole() error {
	if _, err := b.console.Write(b.buf.Bytes()); err != nil {
		return err
	}
	if f, ok := b.console.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Announce writes text to the console only.
func (b *Broadcaster) Announce(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.console == nil {
		return
	}
	b.buf.Reset()
	b.buf.WriteString(text)
	if err := b.writeConsole(); err != nil {
		log.Warn().Err(err).Msg("console write failed, disabling console output")
		b.console = nil
	}
}

// AddStream appends w to the roster. override names a formatting profile of the
// session being displayed; an empty or unknown name uses the default format.
// There is no de-duplication and no capacity bound.
func (b *Broadcaster) AddStream(w io.Writer, override string) *Sink {
	s := &Sink{
		ID:       uuid.New(),
		Override: override,
		AddedAt:  time.Now(),
		w:        w,
	}

	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	total := len(b.sinks)
	b.mu.Unlock()

	log.Debug().
		Str("sink_id", s.ID.String()).
		Str("override", override).
		Int("total_sinks", total).
		Msg("sink registered")

	return s
}

// Len returns the number of registered sinks.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}

// ConsoleEnabled reports whether console output is still active.
func (b *Broadcaster) ConsoleEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.console != nil
}

// Sinks returns a snapshot of the roster in registration order.
func (b *Broadcaster) Sinks() []SinkInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos := make([]SinkInfo, 0, len(b.sinks))
	for _, s := range b.sinks {
		infos = append(infos, SinkInfo{ID: s.ID.String(), Override: s.Override, AddedAt: s.AddedAt})
	}
	return infos
}

// Close closes and removes every sink.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	sinks := b.sinks
	b.sinks = nil
	b.mu.Unlock()

	for _, s := range sinks {
		closeSink(s)
	}
}

// WriteOnce renders a single frame for sess directly to w, outside the roster.
func WriteOnce(w io.Writer, sess *session.Session, d time.Duration, phase session.Phase, override string) error {
	var buf bytes.Buffer
	buf.WriteString(sess.Display(d, phase, sess.Override(override)))
	buf.WriteByte(FrameTerminator)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteText writes text as a single frame to w.
func WriteText(w io.Writer, text string) error {
	buf := make([]byte, 0, len(text)+1)
	buf = append(buf, text...)
	buf = append(buf, FrameTerminator)
	_, err := w.Write(buf)
	return err
}

func closeSink(s *Sink) {
	c, ok := s.w.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Str("sink_id", s.ID.String()).Msg("failed to close sink")
	}
}
