package timer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/clock"
	"github.com/mcdev12/pomogame/go/internal/session"
)

// Writer receives one status update per tick.
type Writer interface {
	Write(sess *session.Session, d time.Duration, phase session.Phase) error
}

// EventKind identifies how a run ended.
type EventKind int

const (
	// EventFinished means the countdown and its overtime budget were exhausted.
	EventFinished EventKind = iota
)

func (k EventKind) String() string {
	if k == EventFinished {
		return "finished"
	}
	return "unknown"
}

// Event is returned by a run that completed without being cancelled.
type Event struct {
	Kind EventKind
	// Overtime is the overtime reported on the last overtime tick. The engine's
	// own bookkeeping is cleared before Start returns, so this is the only copy.
	Overtime time.Duration
}

// Engine drives one countdown at a time: a main phase ticking down to the
// deadline, then an overtime phase ticking up to the session's overtime cap.
// An Engine is created once and reused for every session.
type Engine struct {
	interval time.Duration
	clock    clock.Clock
	writer   Writer
	running  atomic.Bool

	stateMu sync.Mutex
	state   State

	// tick is the next absolute instant to report. Only the running Start
	// goroutine touches it.
	tick time.Time

	elapsedMu       sync.Mutex
	overtimeElapsed time.Duration

	startedMu       sync.Mutex
	overtimeStarted bool
}

// NewEngine creates an engine that reports to w every interval.
func NewEngine(interval time.Duration, clk clock.Clock, w Writer) *Engine {
	return &Engine{
		interval: interval,
		clock:    clk,
		writer:   w,
		state:    PreInit(),
	}
}

// Interval returns the tick granularity.
func (e *Engine) Interval() time.Duration { return e.interval }

// State returns the current timer state.
func (e *Engine) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

// SetState replaces the timer state. The driver calls this between runs.
func (e *Engine) SetState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// OvertimeElapsed returns the overtime reported so far by the current run.
// It is safe to call while Start is ticking.
func (e *Engine) OvertimeElapsed() time.Duration {
	e.elapsedMu.Lock()
	defer e.elapsedMu.Unlock()
	return e.overtimeElapsed
}

// OvertimeStarted reports whether the current run has entered its overtime phase.
func (e *Engine) OvertimeStarted() bool {
	e.startedMu.Lock()
	defer e.startedMu.Unlock()
	return e.overtimeStarted
}

// ResetOvertime returns the overtime bookkeeping to its initial values.
// Start does this itself on completion; after a cancelled run the driver calls
// it once it has read the values it needs.
func (e *Engine) ResetOvertime() {
	e.setOvertimeElapsed(0)
	e.setOvertimeStarted(false)
}

func (e *Engine) setOvertimeElapsed(d time.Duration) {
	e.elapsedMu.Lock()
	e.overtimeElapsed = d
	e.elapsedMu.Unlock()
}

func (e *Engine) setOvertimeStarted(v bool) {
	e.startedMu.Lock()
	e.overtimeStarted = v
	e.startedMu.Unlock()
}

// Start runs sess from start to dest and then through its overtime budget.
// Every wait targets an absolute instant phase-aligned to dest, so scheduler
// jitter never accumulates. Cancelling ctx stops the run at its current wait
// and Start returns ctx.Err(); the state touch-up runs on every exit path.
func (e *Engine) Start(ctx context.Context, sess *session.Session, start, dest time.Time) (Event, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Event{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)
	defer e.touchState()

	if e.interval <= 0 || !dest.After(start) {
		return Event{}, fmt.Errorf("%w: interval %s, span %s", ErrInvalidRange, e.interval, dest.Sub(start))
	}

	first := dest.Sub(start) % e.interval
	if first == 0 {
		first = e.interval
	}
	e.tick = start.Add(first)

	log.Debug().
		Str("session_id", sess.ID).
		Time("dest", dest).
		Dur("first_tick", first).
		Msg("timer run started")

	for !e.tick.After(dest) {
		if err := clock.SleepUntil(ctx, e.clock, e.tick); err != nil {
			return Event{}, err
		}
		if err := e.writer.Write(sess, dest.Sub(e.tick), session.PhaseRunning); err != nil {
			return Event{}, fmt.Errorf("write status: %w", err)
		}
		e.tick = e.tick.Add(e.interval)
	}

	overtime := sess.Overtime
	e.tick = e.tick.Add(overtime % e.interval)
	e.setOvertimeStarted(true)

	for e.tick.Sub(dest) <= overtime {
		if err := clock.SleepUntil(ctx, e.clock, e.tick); err != nil {
			return Event{}, err
		}
		elapsed := e.tick.Sub(dest)
		if err := e.writer.Write(sess, elapsed, session.PhaseOvertime); err != nil {
			return Event{}, fmt.Errorf("write status: %w", err)
		}
		e.tick = e.tick.Add(e.interval)
		e.setOvertimeElapsed(elapsed)
	}

	consumed := e.OvertimeElapsed()
	e.ResetOvertime()

	log.Debug().
		Str("session_id", sess.ID).
		Dur("overtime", consumed).
		Msg("timer run finished")

	return Event{Kind: EventFinished, Overtime: consumed}, nil
}
