package command

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind names a control command.
type Kind string

const (
	KindLevel   Kind = "level"
	KindName    Kind = "name"
	KindStamina Kind = "stamina"
	KindSloth   Kind = "sloth"
	KindPause   Kind = "pause"
	KindResume  Kind = "resume"
	KindToggle  Kind = "toggle"
	KindNext    Kind = "next"
	KindPrev    Kind = "prev"
	KindFinish  Kind = "finish"
	KindJump    Kind = "jump"
	KindReload  Kind = "reload"
	KindFetch   Kind = "fetch"
	KindListen  Kind = "listen"
)

// Kinds lists every command in the order the client documents them.
var Kinds = []Kind{
	KindLevel, KindName, KindStamina, KindSloth,
	KindPause, KindResume, KindToggle, KindNext, KindPrev, KindFinish,
	KindJump, KindReload, KindFetch, KindListen,
}

// Terminator ends a command on the wire.
const Terminator byte = 0

// Command is one request sent by a client over the control socket.
type Command struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id,omitempty"`
	Format   string `json:"format,omitempty"`
	Override string `json:"override,omitempty"`
	Exit     bool   `json:"exit,omitempty"`
}

// Valid reports whether k is a known command kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Query reports whether the command expects a single text reply.
func (c Command) Query() bool {
	switch c.Kind {
	case KindLevel, KindName, KindStamina, KindSloth, KindFetch:
		return true
	case KindListen:
		return c.Exit
	default:
		return false
	}
}

// Validate checks the kind and its required arguments.
func (c Command) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
	}
	switch c.Kind {
	case KindJump:
		if c.ID == "" {
			return fmt.Errorf("%w: jump requires a session id", ErrMissingArgument)
		}
	case KindFetch:
		if c.Format == "" {
			return fmt.Errorf("%w: fetch requires a format", ErrMissingArgument)
		}
	}
	return nil
}

// Encode writes cmd as JSON followed by the terminator.
func Encode(w io.Writer, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, Terminator)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// MaxCommandSize bounds an encoded command, terminator excluded.
const MaxCommandSize = 16 * 1024

// Decode reads a single terminated command from r. A stream that ends without a
// terminator is accepted as long as it carries a complete object.
func Decode(r io.Reader) (Command, error) {
	raw, err := bufio.NewReader(io.LimitReader(r, MaxCommandSize+1)).ReadBytes(Terminator)
	if err != nil && !errors.Is(err, io.EOF) {
		return Command{}, fmt.Errorf("read command: %w", err)
	}
	raw = bytes.TrimSuffix(raw, []byte{Terminator})
	if len(raw) > MaxCommandSize {
		return Command{}, ErrCommandTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Command{}, ErrEmptyCommand
	}

	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
