package app

import (
	"io"
	"time"

	"github.com/mcdev12/pomogame/go/internal/broadcast"
)

// Status is a point-in-time view of the driver
type Status struct {
	SessionID   string               `json:"session_id"`
	SessionName string               `json:"session_name"`
	Kind        string               `json:"kind"`
	Index       int                  `json:"index"`
	Total       int                  `json:"total"`
	State       string               `json:"state"`
	Phase       string               `json:"phase"`
	Time        string               `json:"time"`
	Seconds     float64              `json:"seconds"`
	Display     string               `json:"display"`
	Listeners   []broadcast.SinkInfo `json:"listeners"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Status reports the current session and timer position. It is safe to call
// from any goroutine.
func (a *App) Status() Status {
	sess, d, phase := a.position()

	a.mu.Lock()
	index, total := a.index, len(a.sessions)
	a.mu.Unlock()

	return Status{
		SessionID:   sess.ID,
		SessionName: sess.Name,
		Kind:        string(sess.Kind),
		Index:       index,
		Total:       total,
		State:       a.engine.State().Kind.String(),
		Phase:       phase.String(),
		Time:        d.Round(time.Second).String(),
		Seconds:     d.Seconds(),
		Display:     sess.Display(d, phase, nil),
		Listeners:   a.bc.Sinks(),
		Timestamp:   a.clock.Now(),
	}
}

// WriteCurrent writes one frame describing the current position to w using
// the named override. It is safe to call from any goroutine.
func (a *App) WriteCurrent(w io.Writer, override string) error {
	sess, d, phase := a.position()
	return broadcast.WriteOnce(w, sess, d, phase, override)
}
