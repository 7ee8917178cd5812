package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/broadcast"
	"github.com/mcdev12/pomogame/go/internal/clock"
	"github.com/mcdev12/pomogame/go/internal/events"
	"github.com/mcdev12/pomogame/go/internal/player"
	"github.com/mcdev12/pomogame/go/internal/session"
	"github.com/mcdev12/pomogame/go/internal/socket"
	"github.com/mcdev12/pomogame/go/internal/timer"
)

// PlayerApp defines what the driver needs from the player app
type PlayerApp interface {
	Field(name string) (string, error)
	RecordWork(base float64, overtime, duration time.Duration) (player.Result, error)
	RecordBreak(overtime, duration time.Duration) error
}

// EventQueue accepts session events for asynchronous publishing
type EventQueue interface {
	Enqueue(env events.Envelope)
}

// Runner executes a finished session's command
type Runner interface {
	Run(ctx context.Context, sess *session.Session) error
}

// Loader reads the session config, used on reload.
type Loader func(path string) (*session.Config, error)

type Options struct {
	ConfigPath  string
	Config      *session.Config
	Interval    time.Duration
	Clock       clock.Clock
	Broadcaster *broadcast.Broadcaster
	Players     PlayerApp
	Events      EventQueue
	Runner      Runner
	Loader      Loader
	// WriteTimeout bounds each write to a control connection.
	WriteTimeout time.Duration
}

// App sequences the configured sessions. It owns the timer engine and reacts
// to control commands; only the goroutine inside Run changes timer state.
type App struct {
	configPath string
	clock      clock.Clock
	engine     *timer.Engine
	bc         *broadcast.Broadcaster
	players    PlayerApp
	events     EventQueue
	runner     Runner
	load       Loader

	writeTimeout time.Duration

	// mu guards cfg, sessions and index, which Status reads from other goroutines.
	mu       sync.Mutex
	cfg      *session.Config
	sessions []*session.Session
	index    int

	first   bool
	running *run
	wg      sync.WaitGroup
}

// New wires an App. Config, Broadcaster and Players are required.
func New(opts Options) (*App, error) {
	if opts.Config == nil || len(opts.Config.Sessions()) == 0 {
		return nil, session.ErrNoSessions
	}
	if opts.Broadcaster == nil {
		return nil, errors.New("broadcaster is required")
	}
	if opts.Players == nil {
		return nil, errors.New("player app is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Loader == nil {
		opts.Loader = session.LoadConfig
	}
	if opts.Runner == nil {
		opts.Runner = NewShellRunner()
	}
	if opts.Events == nil {
		opts.Events = discardQueue{}
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = socket.DefaultWriteTimeout
	}

	return &App{
		configPath: opts.ConfigPath,
		clock:      opts.Clock,
		engine:     timer.NewEngine(opts.Interval, opts.Clock, opts.Broadcaster),
		bc:         opts.Broadcaster,
		players:    opts.Players,
		events:     opts.Events,
		runner:     opts.Runner,
		load:       opts.Loader,

		writeTimeout: opts.WriteTimeout,
		cfg:        opts.Config,
		sessions:   opts.Config.Sessions(),
		first:      true,
	}, nil
}

// Engine exposes the timer engine for inspection.
func (a *App) Engine() *timer.Engine { return a.engine }

// runResult is what the engine goroutine reports when Start returns.
type runResult struct {
	ev  timer.Event
	err error
}

// run is an engine run in flight.
type run struct {
	sess   *session.Session
	cancel context.CancelFunc
	done   chan runResult
	halted bool
	result runResult
}

// halt cancels the run and waits for Start to return. The result tells a
// cancelled run apart from one that finished just before the cancel.
func (r *run) halt() runResult {
	if !r.halted {
		r.cancel()
		r.result = <-r.done
		r.halted = true
	}
	return r.result
}

// Run drives sessions until ctx is cancelled, serving commands from requests.
// A closed requests channel only stops command handling.
func (a *App) Run(ctx context.Context, requests <-chan socket.Request) error {
	defer a.wg.Wait()

	if text := a.config().StartupText; text != "" {
		a.bc.Announce(text)
	}

	log.Info().
		Int("sessions", len(a.sessions)).
		Dur("interval", a.engine.Interval()).
		Msg("session driver started")

	for {
		var err error
		st := a.engine.State()

		switch st.Kind {
		case timer.KindPreInit:
			a.enter()
			continue
		case timer.KindResumed:
			err = a.runSession(ctx, &requests, st)
		case timer.KindPaused, timer.KindFinished:
			err = a.idle(ctx, &requests)
		}

		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("session driver shutting down")
				return nil
			}
			return err
		}
	}
}

// enter moves a PreInit session to its starting state.
func (a *App) enter() {
	sess := a.current()
	first := a.first
	a.first = false

	if !sess.Autostart || (first && a.config().PauseAtStart) {
		a.pauseAt(sess, sess.Duration)
		log.Info().Str("session_id", sess.ID).Msg("session waiting to start")
		return
	}

	now := a.clock.Now()
	dest := now.Add(sess.Duration)
	a.engine.SetState(timer.Resumed(now, dest))
	a.publish(events.TypeSessionStarted, sess.ID, events.SessionStartedPayload{
		SessionID:   sess.ID,
		SessionName: sess.Name,
		Kind:        string(sess.Kind),
		Duration:    sess.Duration.String(),
		StartedAt:   now,
		DeadlineAt:  dest,
	})
	log.Info().Str("session_id", sess.ID).Time("dest", dest).Msg("session started")
}

// pauseAt switches to Paused with remaining left and shows the paused line
// once; it is not repeated while the session stays paused.
func (a *App) pauseAt(sess *session.Session, remaining time.Duration) {
	a.engine.SetState(timer.Paused(remaining))
	if err := a.bc.Write(sess, remaining, session.PhasePaused); err != nil {
		log.Warn().Err(err).Msg("failed to write paused status")
	}
}

// idle waits for a single command while no run is active.
func (a *App) idle(ctx context.Context, requests *<-chan socket.Request) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-*requests:
			if !ok {
				*requests = nil
				continue
			}
			a.handle(ctx, req)
			return nil
		}
	}
}

// runSession runs the engine for the resumed state st while serving commands.
// It returns once the run finished or a command stopped it.
func (a *App) runSession(ctx context.Context, requests *<-chan socket.Request, st timer.State) error {
	sess := a.current()
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{sess: sess, cancel: cancel, done: make(chan runResult, 1)}

	go func() {
		ev, err := a.engine.Start(runCtx, sess, st.Since, st.Dest)
		r.done <- runResult{ev: ev, err: err}
	}()

	a.running = r
	defer func() {
		r.halt()
		a.running = nil
	}()

	for {
		select {
		case res := <-r.done:
			r.halted, r.result = true, res
			cancel()
			if res.err != nil {
				return fmt.Errorf("timer run for %s: %w", sess.ID, res.err)
			}
			a.complete(ctx, sess, res.ev.Overtime, false)
			a.advance()
			return nil
		case req, ok := <-*requests:
			if !ok {
				*requests = nil
				continue
			}
			a.handle(ctx, req)
			if r.halted {
				return nil
			}
		case <-ctx.Done():
			r.halt()
			return ctx.Err()
		}
	}
}

// stopRun halts the active run, if any. It reports true when the run had
// already finished, in which case the completion has been handled and the
// caller's command is superseded.
func (a *App) stopRun(ctx context.Context) bool {
	r := a.running
	if r == nil || r.halted {
		return false
	}
	res := r.halt()
	if res.err == nil {
		a.complete(ctx, r.sess, res.ev.Overtime, false)
		a.advance()
		return true
	}
	return false
}

func (a *App) config() *session.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *App) current() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[a.index]
}

// moveTo selects session i and resets the engine for it.
func (a *App) moveTo(i int) {
	a.mu.Lock()
	a.index = i
	id := a.sessions[i].ID
	a.mu.Unlock()

	a.engine.ResetOvertime()
	a.engine.SetState(timer.PreInit())
	log.Info().Str("session_id", id).Int("index", i).Msg("moved to session")
}

// neighbour returns the index delta steps away, wrapping only when
// loop_on_end is set.
func (a *App) neighbour(delta int) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.sessions)
	i := a.index + delta
	if i >= 0 && i < n {
		return i, true
	}
	if !a.cfg.LoopOnEnd {
		return 0, false
	}
	return (i%n + n) % n, true
}

// advance moves past a completed session. Without loop_on_end the last
// session stays finished.
func (a *App) advance() {
	if i, ok := a.neighbour(1); ok {
		a.moveTo(i)
		return
	}
	a.engine.SetState(timer.Finished())
	log.Info().Msg("reached the end of the session list")
}

type discardQueue struct{}

func (discardQueue) Enqueue(events.Envelope) {}
