package timer

import (
	"fmt"
	"time"
)

// Kind identifies the active variant of a State.
type Kind int

const (
	KindPreInit Kind = iota
	KindPaused
	KindResumed
	KindFinished
)

func (k Kind) String() string {
	switch k {
	case KindPreInit:
		return "pre_init"
	case KindPaused:
		return "paused"
	case KindResumed:
		return "resumed"
	case KindFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// State is the externally visible timer state. Only the fields belonging to
// Kind are meaningful: Remaining for Paused, Since and Dest for Resumed.
type State struct {
	Kind      Kind
	Remaining time.Duration
	Since     time.Time
	Dest      time.Time
}

// PreInit is the state of a timer that has never started.
func PreInit() State { return State{Kind: KindPreInit} }

// Paused is a stopped countdown with remaining time left.
func Paused(remaining time.Duration) State {
	return State{Kind: KindPaused, Remaining: remaining}
}

// Resumed is a running countdown last observed at since, ending at dest.
func Resumed(since, dest time.Time) State {
	return State{Kind: KindResumed, Since: since, Dest: dest}
}

// Finished is the terminal state of a completed run.
func Finished() State { return State{Kind: KindFinished} }

// Left returns the countdown time left. For a resumed state it is
// measured from Since, which the engine refreshes whenever a run exits.
func (s State) Left() time.Duration {
	switch s.Kind {
	case KindPaused:
		return s.Remaining
	case KindResumed:
		if d := s.Dest.Sub(s.Since); d > 0 {
			return d
		}
		return 0
	default:
		return 0
	}
}

func (s State) String() string {
	switch s.Kind {
	case KindPaused:
		return fmt.Sprintf("paused(%s)", s.Remaining)
	case KindResumed:
		return fmt.Sprintf("resumed(%s)", s.Dest.Sub(s.Since))
	default:
		return s.Kind.String()
	}
}
