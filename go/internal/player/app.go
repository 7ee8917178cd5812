package player

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PlayerRepository defines what the app layer needs from the repository
type PlayerRepository interface {
	Load() (*Player, error)
	Save(p *Player) error
}

// App handles player business logic: it applies completed sessions to the
// profile and persists the result.
type App struct {
	repo PlayerRepository
	now  func() time.Time

	mu     sync.Mutex
	player *Player
}

// NewApp creates a new player app
func NewApp(repo PlayerRepository, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}
	return &App{repo: repo, now: now}
}

// Load reads the profile from the repository and rolls it over to today.
func (a *App) Load() error {
	p, err := a.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load player: %w", err)
	}
	p.RollDay(DateOf(a.now()))

	a.mu.Lock()
	a.player = p
	a.mu.Unlock()

	log.Info().
		Str("name", p.Name).
		Int("level", p.Level.Level).
		Int("stamina", p.Stamina.Value).
		Int("sloth", p.Sloth.Value).
		Msg("player loaded")
	return nil
}

// Player returns a copy of the current profile.
func (a *App) Player() (Player, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player == nil {
		return Player{}, ErrNotLoaded
	}
	return *a.player, nil
}

// RecordWork applies a completed work session and saves the profile.
func (a *App) RecordWork(base float64, overtime, duration time.Duration) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player == nil {
		return Result{}, ErrNotLoaded
	}

	a.player.RollDay(DateOf(a.now()))
	res := a.player.CompleteWork(base, overtime, duration)

	log.Info().
		Int64("earned_exp", res.EarnedExperience).
		Bool("leveled_up", res.LeveledUp).
		Int("level", a.player.Level.Level).
		Int("stamina", a.player.Stamina.Value).
		Dur("overtime", overtime).
		Msg("work session recorded")

	if err := a.repo.Save(a.player); err != nil {
		return res, fmt.Errorf("failed to save player: %w", err)
	}
	return res, nil
}

// RecordBreak applies a completed break and saves the profile.
func (a *App) RecordBreak(overtime, duration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.player == nil {
		return ErrNotLoaded
	}

	a.player.RollDay(DateOf(a.now()))
	a.player.CompleteBreak(overtime, duration)

	log.Info().
		Int("sloth", a.player.Sloth.Value).
		Dur("overtime", overtime).
		Msg("break recorded")

	if err := a.repo.Save(a.player); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	return nil
}

// Field renders a single profile attribute for the control socket queries.
func (a *App) Field(name string) (string, error) {
	p, err := a.Player()
	if err != nil {
		return "", err
	}
	switch name {
	case "level":
		return strconv.Itoa(p.Level.Level), nil
	case "name":
		return p.Name, nil
	case "stamina":
		return strconv.Itoa(p.Stamina.Value), nil
	case "sloth":
		return strconv.Itoa(p.Sloth.Value), nil
	default:
		return "", fmt.Errorf("unknown player field %q", name)
	}
}
