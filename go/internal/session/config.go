package session

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Built-in values used when neither the session nor the defaults block sets them.
const (
	DefaultFormat            = "{name}: {time}\n"
	DefaultTimeFormat        = "%M:%S"
	DefaultPausedStateText   = "⏸"
	DefaultResumedStateText  = "⏵"
	DefaultOvertimeStateText = "+"
)

// Defaults holds values inherited by every session entry.
type Defaults struct {
	Format            string              `yaml:"format"`
	TimeFormat        string              `yaml:"time_format"`
	PausedStateText   string              `yaml:"paused_state_text"`
	ResumedStateText  string              `yaml:"resumed_state_text"`
	OvertimeStateText string              `yaml:"overtime_state_text"`
	Overtime          *time.Duration      `yaml:"overtime"`
	Experience        float64             `yaml:"experience"`
	Autostart         bool                `yaml:"autostart"`
	Command           string              `yaml:"command"`
	Overrides         map[string]Override `yaml:"overrides"`
}

// Entry is a session as written in the config file. Nil or empty fields
// inherit from Defaults.
type Entry struct {
	ID                string              `yaml:"id"`
	Name              string              `yaml:"name"`
	Kind              Kind                `yaml:"kind"`
	Duration          time.Duration       `yaml:"duration"`
	Overtime          *time.Duration      `yaml:"overtime"`
	Experience        *float64            `yaml:"experience"`
	Command           *string             `yaml:"command"`
	Autostart         *bool               `yaml:"autostart"`
	Format            string              `yaml:"format"`
	TimeFormat        string              `yaml:"time_format"`
	PausedStateText   string              `yaml:"paused_state_text"`
	ResumedStateText  string              `yaml:"resumed_state_text"`
	OvertimeStateText string              `yaml:"overtime_state_text"`
	Overrides         map[string]Override `yaml:"overrides"`
}

// Config is the session list plus the daemon-wide options that sequence it.
type Config struct {
	LoopOnEnd    bool     `yaml:"loop_on_end"`
	PauseAtStart bool     `yaml:"pause_at_start"`
	StartupText  string   `yaml:"startup_text"`
	Defaults     Defaults `yaml:"defaults"`
	Entries      []Entry  `yaml:"sessions"`

	sessions []*Session
}

// LoadConfig reads and validates a YAML session config. The path may start with ~.
func LoadConfig(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML session config.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.build(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Sessions returns the resolved session list in config order.
func (c *Config) Sessions() []*Session {
	return c.sessions
}

// Index returns the position of the session with the given id.
func (c *Config) Index(id string) (int, error) {
	for i, s := range c.sessions {
		if s.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSession, id)
}

func (c *Config) build() error {
	if len(c.Entries) == 0 {
		return ErrNoSessions
	}

	seen := make(map[string]bool, len(c.Entries))
	sessions := make([]*Session, 0, len(c.Entries))
	for i, e := range c.Entries {
		if e.ID == "" {
			return fmt.Errorf("session %d: id is required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("session %q: duplicate id", e.ID)
		}
		seen[e.ID] = true

		if e.Duration <= 0 {
			return fmt.Errorf("session %q: duration must be positive", e.ID)
		}

		s, err := c.resolve(e)
		if err != nil {
			return fmt.Errorf("session %q: %w", e.ID, err)
		}
		sessions = append(sessions, s)
	}

	c.sessions = sessions
	return nil
}

func (c *Config) resolve(e Entry) (*Session, error) {
	d := c.Defaults

	s := &Session{
		ID:                e.ID,
		Name:              firstNonEmpty(e.Name, e.ID),
		Kind:              e.Kind,
		Duration:          e.Duration,
		Overtime:          e.Duration,
		Experience:        d.Experience,
		Command:           d.Command,
		Autostart:         d.Autostart,
		Format:            firstNonEmpty(e.Format, firstNonEmpty(d.Format, DefaultFormat)),
		TimeFormat:        firstNonEmpty(e.TimeFormat, firstNonEmpty(d.TimeFormat, DefaultTimeFormat)),
		PausedStateText:   firstNonEmpty(e.PausedStateText, firstNonEmpty(d.PausedStateText, DefaultPausedStateText)),
		ResumedStateText:  firstNonEmpty(e.ResumedStateText, firstNonEmpty(d.ResumedStateText, DefaultResumedStateText)),
		OvertimeStateText: firstNonEmpty(e.OvertimeStateText, firstNonEmpty(d.OvertimeStateText, DefaultOvertimeStateText)),
	}

	switch s.Kind {
	case "":
		s.Kind = KindWork
	case KindWork, KindBreak:
	default:
		return nil, fmt.Errorf("unknown kind %q", e.Kind)
	}

	if d.Overtime != nil {
		s.Overtime = *d.Overtime
	}
	if e.Overtime != nil {
		s.Overtime = *e.Overtime
	}
	if s.Overtime < 0 {
		return nil, fmt.Errorf("overtime must not be negative")
	}
	if e.Experience != nil {
		s.Experience = *e.Experience
	}
	if e.Command != nil {
		s.Command = *e.Command
	}
	if e.Autostart != nil {
		s.Autostart = *e.Autostart
	}

	if len(d.Overrides) > 0 || len(e.Overrides) > 0 {
		s.Overrides = make(map[string]Override, len(d.Overrides)+len(e.Overrides))
		for name, ov := range d.Overrides {
			s.Overrides[name] = ov
		}
		for name, ov := range e.Overrides {
			s.Overrides[name] = ov
		}
	}

	return s, nil
}
