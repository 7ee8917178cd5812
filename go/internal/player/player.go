package player

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// MaxStatValue is the full value of stamina and sloth.
const MaxStatValue = 100

// Player is the persisted gamification profile.
type Player struct {
	Name     string   `toml:"name"`
	Level    Level    `toml:"level"`
	Stamina  Stamina  `toml:"stamina"`
	Sloth    Sloth    `toml:"sloth"`
	Counters Counters `toml:"counters"`
}

// Level tracks the current level and the experience gathered towards the next.
type Level struct {
	Level      int   `toml:"level"`
	Experience int64 `toml:"level_experience"`
}

// Stamina drops when work sessions run into overtime.
type Stamina struct {
	Value int `toml:"stamina_val"`
}

// Sloth rises when breaks run into overtime.
type Sloth struct {
	Value int `toml:"sloth_val"`
}

// Counters holds the daily tallies.
type Counters struct {
	DailyCompletedPomodoros int            `toml:"daily_completed_pomodoros"`
	DailyRests              int            `toml:"daily_rests"`
	DailyStreak             int            `toml:"daily_streak"`
	LastActiveDate          toml.LocalDate `toml:"last_active_date"`
}

// New returns a fresh level 1 player with full stamina.
func New() *Player {
	return &Player{
		Name:    "Player",
		Level:   Level{Level: 1},
		Stamina: Stamina{Value: MaxStatValue},
	}
}

// RequiredExperience is the experience needed to leave the current level.
func (l Level) RequiredExperience() int64 {
	lv := float64(l.Level)
	return 100 + int64(1.375*lv*lv+5*lv)
}

// CalculateEarnedExp scales a session's base experience by the player's
// stamina bonus and sloth penalty. The result is never negative.
func CalculateEarnedExp(base float64, stamina Stamina, sloth Sloth) int64 {
	bonus := 100 * 0.25 * (float64(stamina.Value) / MaxStatValue)
	penalty := base * 0.5 * (float64(sloth.Value) / MaxStatValue)

	earned := base + bonus - penalty
	if earned < 0 {
		return 0
	}
	return int64(math.Round(earned))
}

// AddExperience adds n and levels up at most once.
func (l *Level) AddExperience(n int64) bool {
	l.Experience += n
	required := l.RequiredExperience()
	if l.Experience < required {
		return false
	}
	l.Level++
	l.Experience -= required
	return true
}

// overtimeStep maps how far a session overran, relative to its length, onto a
// stat change.
func overtimeStep(extra, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	ratio := float64(extra) / float64(total)
	switch {
	case ratio >= 1:
		return 25
	case ratio >= 0.75:
		return 18
	case ratio >= 0.5:
		return 12
	case ratio >= 0.25:
		return 6
	default:
		return 0
	}
}

// Decrease lowers stamina according to the overtime spent on a work session.
func (s *Stamina) Decrease(extra, total time.Duration) {
	s.Value = max(s.Value-overtimeStep(extra, total), 0)
}

// Reset restores full stamina.
func (s *Stamina) Reset() { s.Value = MaxStatValue }

// Increase raises sloth according to the overtime spent on a break.
func (s *Sloth) Increase(extra, total time.Duration) {
	s.Value = min(s.Value+overtimeStep(extra, total), MaxStatValue)
}

// Reset clears sloth.
func (s *Sloth) Reset() { s.Value = 0 }

// Result summarizes what a completed session changed.
type Result struct {
	EarnedExperience int64
	LeveledUp        bool
}

// CompleteWork records a finished work session. Experience is computed from
// the stats before the overtime penalty is applied.
func (p *Player) CompleteWork(base float64, overtime, duration time.Duration) Result {
	earned := CalculateEarnedExp(base, p.Stamina, p.Sloth)
	leveled := p.Level.AddExperience(earned)

	p.Stamina.Decrease(overtime, duration)
	p.Sloth.Reset()

	p.Counters.DailyCompletedPomodoros++
	if p.Counters.DailyCompletedPomodoros == 1 {
		p.Counters.DailyStreak++
	}

	return Result{EarnedExperience: earned, LeveledUp: leveled}
}

// CompleteBreak records a finished break.
func (p *Player) CompleteBreak(overtime, duration time.Duration) {
	p.Sloth.Increase(overtime, duration)
	p.Stamina.Reset()
	p.Counters.DailyRests++
}

// RollDay starts a new day when today differs from the last active date.
// The streak survives only if yesterday had at least one completed pomodoro.
func (p *Player) RollDay(today toml.LocalDate) {
	c := &p.Counters
	if c.LastActiveDate == today {
		return
	}

	yesterday := DateOf(today.AsTime(time.UTC).AddDate(0, 0, -1))
	if c.LastActiveDate != yesterday || c.DailyCompletedPomodoros == 0 {
		c.DailyStreak = 0
	}
	c.DailyCompletedPomodoros = 0
	c.DailyRests = 0
	c.LastActiveDate = today
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) toml.LocalDate {
	return toml.LocalDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func (p *Player) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Player: %s\n", p.Name)
	fmt.Fprintf(&b, "  Level: %d\n", p.Level.Level)
	fmt.Fprintf(&b, "  Experience: %d/%d\n", p.Level.Experience, p.Level.RequiredExperience())
	fmt.Fprintf(&b, "  Stamina: %d\n", p.Stamina.Value)
	fmt.Fprintf(&b, "  Sloth: %d\n", p.Sloth.Value)
	fmt.Fprintf(&b, "  Daily Pomodoros: %d\n", p.Counters.DailyCompletedPomodoros)
	fmt.Fprintf(&b, "  Daily Rests: %d\n", p.Counters.DailyRests)
	fmt.Fprintf(&b, "  Daily Streak: %d\n", p.Counters.DailyStreak)
	fmt.Fprintf(&b, "  Last Active Date: %s\n", p.Counters.LastActiveDate)
	return b.String()
}
