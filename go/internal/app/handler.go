package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/broadcast"
	"github.com/mcdev12/pomogame/go/internal/command"
	"github.com/mcdev12/pomogame/go/internal/events"
	"github.com/mcdev12/pomogame/go/internal/session"
	"github.com/mcdev12/pomogame/go/internal/socket"
	"github.com/mcdev12/pomogame/go/internal/timer"
)

// handle routes a control command. The connection is closed afterwards unless
// it was registered as a listener.
func (a *App) handle(ctx context.Context, req socket.Request) {
	cmd := req.Command
	w := socket.NewSink(req.Conn, a.writeTimeout)
	keep := false
	defer func() {
		if !keep {
			_ = req.Conn.Close()
		}
	}()

	log.Debug().
		Str("command", string(cmd.Kind)).
		Str("state", a.engine.State().Kind.String()).
		Msg("handling command")

	switch cmd.Kind {
	case command.KindLevel, command.KindName, command.KindStamina, command.KindSloth:
		a.handleQuery(w, cmd.Kind)
	case command.KindFetch:
		a.handleFetch(w, cmd.Format)
	case command.KindListen:
		keep = a.handleListen(w, cmd)
	case command.KindPause:
		a.pause(ctx)
	case command.KindResume:
		a.resume()
	case command.KindToggle:
		if a.running != nil {
			a.pause(ctx)
		} else {
			a.resume()
		}
	case command.KindNext:
		a.step(ctx, 1)
	case command.KindPrev:
		a.step(ctx, -1)
	case command.KindJump:
		a.jump(ctx, cmd.ID)
	case command.KindFinish:
		a.finish(ctx)
	case command.KindReload:
		a.reload(ctx)
	default:
		log.Warn().Str("command", string(cmd.Kind)).Msg("unhandled command")
	}
}

func (a *App) handleQuery(w io.Writer, kind command.Kind) {
	value, err := a.players.Field(string(kind))
	if err != nil {
		log.Error().Err(err).Str("field", string(kind)).Msg("failed to read player field")
		return
	}
	if err := broadcast.WriteText(w, value); err != nil {
		log.Debug().Err(err).Msg("failed to reply to query")
	}
}

func (a *App) handleFetch(w io.Writer, format string) {
	sess, d, phase := a.position()
	adhoc := *sess
	adhoc.Format = format
	if err := broadcast.WriteOnce(w, &adhoc, d, phase, ""); err != nil {
		log.Debug().Err(err).Msg("failed to reply to fetch")
	}
}

// handleListen sends the current status and, unless exit was requested,
// registers the connection as a sink. It reports whether the connection is kept.
func (a *App) handleListen(w *socket.Sink, cmd command.Command) bool {
	if err := a.WriteCurrent(w, cmd.Override); err != nil {
		log.Debug().Err(err).Msg("listener went away before registration")
		return false
	}
	if cmd.Exit {
		return false
	}
	a.bc.AddStream(w, cmd.Override)
	return true
}

// position returns the session on display and the duration and phase that
// describe it right now.
func (a *App) position() (*session.Session, time.Duration, session.Phase) {
	sess := a.current()
	st := a.engine.State()

	switch st.Kind {
	case timer.KindPaused:
		return sess, st.Remaining, session.PhasePaused
	case timer.KindResumed:
		if a.engine.OvertimeStarted() {
			return sess, a.engine.OvertimeElapsed(), session.PhaseOvertime
		}
		left := st.Dest.Sub(a.clock.Now())
		if left < 0 {
			left = 0
		}
		return sess, left, session.PhaseRunning
	case timer.KindFinished:
		return sess, 0, session.PhaseRunning
	default:
		return sess, sess.Duration, session.PhasePaused
	}
}

// pause stops the active run. Pausing during overtime completes the session
// with the overtime measured so far.
func (a *App) pause(ctx context.Context) {
	r := a.running
	if r == nil {
		return
	}
	if a.stopRun(ctx) {
		return
	}

	if a.engine.OvertimeStarted() {
		overtime := a.engine.OvertimeElapsed()
		a.engine.ResetOvertime()
		a.complete(ctx, r.sess, overtime, false)
		a.advance()
		return
	}

	remaining := a.engine.State().Left()
	a.pauseAt(r.sess, remaining)

	a.publish(events.TypeSessionPaused, r.sess.ID, events.SessionPausedPayload{
		SessionID: r.sess.ID,
		PausedAt:  a.clock.Now(),
		Remaining: remaining.String(),
	})
	log.Info().Str("session_id", r.sess.ID).Dur("remaining", remaining).Msg("session paused")
}

func (a *App) resume() {
	st := a.engine.State()
	if st.Kind != timer.KindPaused {
		return
	}

	sess := a.current()
	// a paused countdown with nothing left still has its overtime to run
	remaining := max(st.Remaining, time.Nanosecond)
	now := a.clock.Now()
	dest := now.Add(remaining)
	a.engine.SetState(timer.Resumed(now, dest))

	a.publish(events.TypeSessionResumed, sess.ID, events.SessionResumedPayload{
		SessionID:  sess.ID,
		ResumedAt:  now,
		DeadlineAt: dest,
	})
	log.Info().Str("session_id", sess.ID).Dur("remaining", st.Remaining).Msg("session resumed")
}

func (a *App) step(ctx context.Context, delta int) {
	i, ok := a.neighbour(delta)
	if !ok {
		log.Info().Int("delta", delta).Msg("no session in that direction")
		return
	}
	if a.stopRun(ctx) {
		return
	}
	a.moveTo(i)
}

func (a *App) jump(ctx context.Context, id string) {
	i, err := a.config().Index(id)
	if err != nil {
		log.Warn().Err(err).Msg("jump ignored")
		return
	}
	if a.stopRun(ctx) {
		return
	}
	a.moveTo(i)
}

// finish completes the current session immediately without overtime.
func (a *App) finish(ctx context.Context) {
	if a.engine.State().Kind == timer.KindFinished {
		return
	}
	if a.stopRun(ctx) {
		return
	}
	a.engine.ResetOvertime()
	a.complete(ctx, a.current(), 0, true)
	a.advance()
}

// reload re-reads the session config. The current session is kept by id and
// keeps running; if it no longer exists the first session is selected.
func (a *App) reload(ctx context.Context) {
	cfg, err := a.load(a.configPath)
	if err != nil {
		log.Error().Err(err).Str("path", a.configPath).Msg("failed to reload config")
		return
	}

	id := a.current().ID
	i, err := cfg.Index(id)
	missing := errors.Is(err, session.ErrUnknownSession)

	if missing {
		a.stopRun(ctx)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.sessions = cfg.Sessions()
	if !missing {
		a.index = i
	}
	a.mu.Unlock()

	if missing {
		a.moveTo(0)
	}

	log.Info().
		Str("path", a.configPath).
		Int("sessions", len(cfg.Sessions())).
		Bool("current_kept", !missing).
		Msg("config reloaded")
}
