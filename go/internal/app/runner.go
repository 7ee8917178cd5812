package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomogame/go/internal/session"
)

// ShellRunner runs session commands through sh -c with the session identity
// in the environment.
type ShellRunner struct {
	Shell string
}

func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: "sh"}
}

func (r *ShellRunner) Run(ctx context.Context, sess *session.Session) error {
	if sess.Command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", sess.Command)
	cmd.Env = append(os.Environ(),
		"POMOGAME_SESSION_ID="+sess.ID,
		"POMOGAME_SESSION_NAME="+sess.Name,
		"POMOGAME_SESSION_KIND="+string(sess.Kind),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %q: %w: %s", sess.Command, err, strings.TrimSpace(stderr.String()))
	}

	log.Debug().Str("session_id", sess.ID).Str("command", sess.Command).Msg("session command done")
	return nil
}
