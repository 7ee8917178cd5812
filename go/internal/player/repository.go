package player

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the player data file used when none is configured.
const DefaultPath = "player_data.toml"

// FileMode is the permission of a saved player file.
const FileMode os.FileMode = 0o644

// document is the on-disk layout: a single [player] table.
type document struct {
	Player Player `toml:"player"`
}

// Repository persists the player profile in a TOML file
type Repository struct {
	path string
	now  func() time.Time
}

// NewRepository creates a repository for path. A leading ~ is expanded.
func NewRepository(path string, now func() time.Time) (*Repository, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if now == nil {
		now = time.Now
	}
	return &Repository{path: expanded, now: now}, nil
}

// Path returns the expanded file path.
func (r *Repository) Path() string { return r.path }

// Load reads the player. A missing file yields a fresh player.
func (r *Repository) Load() (*Player, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read player data: %w", err)
	}

	doc := document{Player: *New()}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse player data %s: %w", r.path, err)
	}
	return &doc.Player, nil
}

// Save stamps the last active date with today's local date and writes p,
// creating parent directories as needed. The file is replaced atomically.
func (r *Repository) Save(p *Player) error {
	doc := document{Player: *p}
	doc.Player.Counters.LastActiveDate = DateOf(r.now())

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode player data: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create player data dir: %w", err)
	}

	if err := renameio.WriteFile(r.path, buf.Bytes(), FileMode, renameio.IgnoreUmask()); err != nil {
		return fmt.Errorf("failed to replace player data: %w", err)
	}

	p.Counters.LastActiveDate = doc.Player.Counters.LastActiveDate
	return nil
}
