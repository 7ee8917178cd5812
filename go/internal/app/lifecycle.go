package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/events"
	"github.com/mcdev12/pomogame/go/internal/session"
	"github.com/mcdev12/pomogame/go/internal/timer"
)

// complete records a finished session: it runs the session command, updates
// the player and publishes SessionFinished.
func (a *App) complete(ctx context.Context, sess *session.Session, overtime time.Duration, manual bool) {
	a.engine.SetState(timer.Finished())

	log.Info().
		Str("session_id", sess.ID).
		Str("kind", string(sess.Kind)).
		Dur("overtime", overtime).
		Bool("manual", manual).
		Msg("session finished")

	if sess.Command != "" {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.runner.Run(ctx, sess); err != nil {
				log.Error().Err(err).Str("session_id", sess.ID).Msg("session command failed")
			}
		}()
	}

	payload := events.SessionFinishedPayload{
		SessionID:   sess.ID,
		SessionName: sess.Name,
		Kind:        string(sess.Kind),
		FinishedAt:  a.clock.Now(),
		Overtime:    overtime.String(),
		Manual:      manual,
	}

	switch sess.Kind {
	case session.KindBreak:
		if err := a.players.RecordBreak(overtime, sess.Duration); err != nil {
			log.Error().Err(err).Msg("failed to record break")
		}
	default:
		res, err := a.players.RecordWork(sess.Experience, overtime, sess.Duration)
		if err != nil {
			log.Error().Err(err).Msg("failed to record work session")
		}
		payload.EarnedExperience = res.EarnedExperience
		payload.LeveledUp = res.LeveledUp
	}

	a.publish(events.TypeSessionFinished, sess.ID, payload)
}

func (a *App) publish(t events.Type, sessionID string, payload any) {
	env, err := events.New(t, sessionID, a.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	a.events.Enqueue(env)
}
