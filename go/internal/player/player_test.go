package player

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
)

func TestLevel_RequiredExperience(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level int
		want  int64
	}{
		{level: 1, want: 106},
		{level: 2, want: 115},
		{level: 10, want: 287},
	}
	for _, tt := range tests {
		if got := (Level{Level: tt.level}).RequiredExperience(); got != tt.want {
			t.Errorf("RequiredExperience(level %d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestCalculateEarnedExp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    float64
		stamina int
		sloth   int
		want    int64
	}{
		{name: "full stamina", base: 40, stamina: 100, sloth: 0, want: 65},
		{name: "half stamina", base: 40, stamina: 50, sloth: 0, want: 53},
		{name: "full sloth", base: 40, stamina: 0, sloth: 100, want: 20},
		{name: "rounding", base: 10.4, stamina: 0, sloth: 0, want: 10},
		{name: "never negative", base: -50, stamina: 0, sloth: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEarnedExp(tt.base, Stamina{Value: tt.stamina}, Sloth{Value: tt.sloth})
			if got != tt.want {
				t.Errorf("CalculateEarnedExp = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLevel_AddExperience(t *testing.T) {
	t.Parallel()

	l := Level{Level: 1, Experience: 100}
	if !l.AddExperience(10) {
		t.Fatal("expected level up")
	}
	if diff := cmp.Diff(Level{Level: 2, Experience: 4}, l); diff != "" {
		t.Errorf("level mismatch (-want +got):\n%s", diff)
	}

	// a single call levels up at most once
	l = Level{Level: 1}
	l.AddExperience(1000)
	if l.Level != 2 || l.Experience != 894 {
		t.Errorf("after large gain got %+v, want level 2 exp 894", l)
	}
}

func TestStatSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		extra time.Duration
		want  int
	}{
		{extra: 0, want: 0},
		{extra: 6 * time.Minute, want: 0},
		{extra: 7 * time.Minute, want: 6},
		{extra: 13 * time.Minute, want: 12},
		{extra: 19 * time.Minute, want: 18},
		{extra: 25 * time.Minute, want: 25},
		{extra: time.Hour, want: 25},
	}
	for _, tt := range tests {
		s := Stamina{Value: MaxStatValue}
		s.Decrease(tt.extra, 25*time.Minute)
		if got := MaxStatValue - s.Value; got != tt.want {
			t.Errorf("stamina decrease for %s = %d, want %d", tt.extra, got, tt.want)
		}

		sl := Sloth{}
		sl.Increase(tt.extra, 25*time.Minute)
		if sl.Value != tt.want {
			t.Errorf("sloth increase for %s = %d, want %d", tt.extra, sl.Value, tt.want)
		}
	}
}

func TestStatClamping(t *testing.T) {
	t.Parallel()

	s := Stamina{Value: 10}
	s.Decrease(time.Hour, time.Minute)
	if s.Value != 0 {
		t.Errorf("stamina = %d, want 0", s.Value)
	}

	sl := Sloth{Value: 90}
	sl.Increase(time.Hour, time.Minute)
	if sl.Value != MaxStatValue {
		t.Errorf("sloth = %d, want %d", sl.Value, MaxStatValue)
	}

	// zero-length sessions never change stats
	s = Stamina{Value: 50}
	s.Decrease(time.Minute, 0)
	if s.Value != 50 {
		t.Errorf("stamina = %d, want 50", s.Value)
	}
}

func TestPlayer_CompleteWorkAndBreak(t *testing.T) {
	t.Parallel()

	p := New()
	p.Sloth.Value = 30

	res := p.CompleteWork(40, 13*time.Minute, 25*time.Minute)
	if res.EarnedExperience != 59 {
		t.Errorf("earned = %d, want 59", res.EarnedExperience)
	}
	if p.Stamina.Value != 88 {
		t.Errorf("stamina = %d, want 88", p.Stamina.Value)
	}
	if p.Sloth.Value != 0 {
		t.Errorf("sloth = %d, want 0 after work", p.Sloth.Value)
	}
	if p.Counters.DailyCompletedPomodoros != 1 || p.Counters.DailyStreak != 1 {
		t.Errorf("counters = %+v", p.Counters)
	}

	p.CompleteBreak(5*time.Minute, 5*time.Minute)
	if p.Sloth.Value != 25 || p.Stamina.Value != MaxStatValue || p.Counters.DailyRests != 1 {
		t.Errorf("after break got sloth %d stamina %d rests %d", p.Sloth.Value, p.Stamina.Value, p.Counters.DailyRests)
	}

	// the streak only counts the first pomodoro of a day
	p.CompleteWork(40, 0, 25*time.Minute)
	if p.Counters.DailyStreak != 1 {
		t.Errorf("streak = %d, want 1", p.Counters.DailyStreak)
	}
}

func TestPlayer_RollDay(t *testing.T) {
	t.Parallel()

	day := toml.LocalDate{Year: 2026, Month: 3, Day: 1}
	next := toml.LocalDate{Year: 2026, Month: 3, Day: 2}
	later := toml.LocalDate{Year: 2026, Month: 3, Day: 5}

	p := New()
	p.Counters = Counters{DailyCompletedPomodoros: 4, DailyRests: 3, DailyStreak: 2, LastActiveDate: day}

	p.RollDay(day)
	if p.Counters.DailyCompletedPomodoros != 4 {
		t.Fatalf("same day should not reset counters: %+v", p.Counters)
	}

	p.RollDay(next)
	want := Counters{DailyStreak: 2, LastActiveDate: next}
	if diff := cmp.Diff(want, p.Counters); diff != "" {
		t.Errorf("next day mismatch (-want +got):\n%s", diff)
	}

	// no pomodoro on the 2nd, so the streak breaks even though it was yesterday
	p.RollDay(toml.LocalDate{Year: 2026, Month: 3, Day: 3})
	if p.Counters.DailyStreak != 0 {
		t.Errorf("streak = %d, want 0", p.Counters.DailyStreak)
	}

	p.Counters.DailyCompletedPomodoros = 1
	p.Counters.DailyStreak = 5
	p.RollDay(later)
	if p.Counters.DailyStreak != 0 {
		t.Errorf("streak after gap = %d, want 0", p.Counters.DailyStreak)
	}
}

func TestRepository_LoadMissing(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "player_data.toml"), nil)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	got, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(New(), got); diff != "" {
		t.Errorf("default player mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_SaveAndLoad(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.Local)
	path := filepath.Join(t.TempDir(), "nested", "player_data.toml")
	repo, err := NewRepository(path, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	p := New()
	p.Name = "Ada"
	p.Level = Level{Level: 3, Experience: 42}
	p.Stamina.Value = 76
	p.Counters.DailyCompletedPomodoros = 2

	if err := repo.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.Counters.LastActiveDate != (toml.LocalDate{Year: 2026, Month: 10, Day: 19}) {
		t.Errorf("last active date = %s, want 2026-10-19", p.Counters.LastActiveDate)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, want := range []string{"[player]", "stamina_val = 76", "last_active_date = 2026-10-19"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("file missing %q:\n%s", want, raw)
		}
	}

	got, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_SaveReplacesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "player_data.toml")
	repo, err := NewRepository(path, time.Now)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}

	p := New()
	for _, name := range []string{"Ada", "Grace"} {
		p.Name = name
		if err := repo.Save(p); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != FileMode {
		t.Errorf("file mode = %o, want %o", got, FileMode)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the player file", len(entries))
	}

	got, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "Grace" {
		t.Errorf("name = %q, want Grace", got.Name)
	}
}

func TestRepository_LoadInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "player_data.toml")
	if err := os.WriteFile(path, []byte("[player\nname = "), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo, err := NewRepository(path, nil)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	if _, err := repo.Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNewRepository_EmptyPath(t *testing.T) {
	t.Parallel()
	if _, err := NewRepository("", nil); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("err = %v, want ErrInvalidPath", err)
	}
}
