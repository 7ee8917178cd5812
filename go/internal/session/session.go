package session

import (
	"strconv"
	"strings"
	"time"
)

// Kind classifies a session for the player bookkeeping.
type Kind string

const (
	KindWork  Kind = "work"
	KindBreak Kind = "break"
)

// Phase tells Display which part of a session a duration belongs to.
type Phase int

const (
	// PhaseRunning renders the remaining time of a running countdown.
	PhaseRunning Phase = iota
	// PhaseOvertime renders the time elapsed past the deadline.
	PhaseOvertime
	// PhasePaused renders the remaining time of a paused countdown.
	PhasePaused
)

// Remaining reports whether durations in this phase count down to the deadline.
func (p Phase) Remaining() bool { return p != PhaseOvertime }

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseOvertime:
		return "overtime"
	case PhasePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Override is a named formatting profile a listener may request.
// Empty fields fall back to the session's own values.
type Override struct {
	Format            string `yaml:"format" json:"format,omitempty"`
	TimeFormat        string `yaml:"time_format" json:"time_format,omitempty"`
	PausedStateText   string `yaml:"paused_state_text" json:"paused_state_text,omitempty"`
	ResumedStateText  string `yaml:"resumed_state_text" json:"resumed_state_text,omitempty"`
	OvertimeStateText string `yaml:"overtime_state_text" json:"overtime_state_text,omitempty"`
}

// Session is one countdown entry of the session list.
type Session struct {
	ID         string
	Name       string
	Kind       Kind
	Duration   time.Duration
	Overtime   time.Duration
	Experience float64
	Command    string
	Autostart  bool

	Format            string
	TimeFormat        string
	PausedStateText   string
	ResumedStateText  string
	OvertimeStateText string

	Overrides map[string]Override
}

// Override resolves a listener's override name. Empty or unknown names yield
// nil, which selects the default formatting.
func (s *Session) Override(name string) *Override {
	if name == "" || s.Overrides == nil {
		return nil
	}
	ov, ok := s.Overrides[name]
	if !ok {
		return nil
	}
	return &ov
}

// Display renders one status line for d in the given phase.
func (s *Session) Display(d time.Duration, phase Phase, ov *Override) string {
	format := s.Format
	timeFormat := s.TimeFormat
	paused, resumed, overtime := s.PausedStateText, s.ResumedStateText, s.OvertimeStateText

	if ov != nil {
		format = firstNonEmpty(ov.Format, format)
		timeFormat = firstNonEmpty(ov.TimeFormat, timeFormat)
		paused = firstNonEmpty(ov.PausedStateText, paused)
		resumed = firstNonEmpty(ov.ResumedStateText, resumed)
		overtime = firstNonEmpty(ov.OvertimeStateText, overtime)
	}

	var state string
	switch phase {
	case PhasePaused:
		state = paused
	case PhaseOvertime:
		state = overtime
	default:
		state = resumed
	}

	r := strings.NewReplacer(
		"{name}", s.Name,
		"{id}", s.ID,
		"{time}", FormatDuration(d, timeFormat),
		"{total}", FormatDuration(s.Duration, timeFormat),
		"{state}", state,
		"{percent}", strconv.Itoa(s.percent(d, phase)),
	)
	return r.Replace(format)
}

// percent is the share of the session already spent, 0-100.
func (s *Session) percent(d time.Duration, phase Phase) int {
	if !phase.Remaining() || s.Duration <= 0 {
		return 100
	}
	spent := s.Duration - d
	if spent <= 0 {
		return 0
	}
	if spent >= s.Duration {
		return 100
	}
	return int(spent * 100 / s.Duration)
}

// FormatDuration expands a time layout for d.
//
//	%H %M %S  zero-padded hours, minutes of the hour, seconds of the minute
//	%h %m %s  unpadded total hours, total minutes, total seconds
//	%%        a literal percent sign
func FormatDuration(d time.Duration, layout string) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := total / 60
	seconds := total

	var b strings.Builder
	b.Grow(len(layout) + 4)
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' || i == len(layout)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch layout[i] {
		case 'H':
			writePadded(&b, hours)
		case 'M':
			writePadded(&b, minutes%60)
		case 'S':
			writePadded(&b, seconds%60)
		case 'h':
			b.WriteString(strconv.FormatInt(hours, 10))
		case 'm':
			b.WriteString(strconv.FormatInt(minutes, 10))
		case 's':
			b.WriteString(strconv.FormatInt(seconds, 10))
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}
	return b.String()
}

func writePadded(b *strings.Builder, v int64) {
	if v < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(v, 10))
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
