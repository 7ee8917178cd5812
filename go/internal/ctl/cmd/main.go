package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/pomogame/go/internal/command"
	"github.com/mcdev12/pomogame/go/internal/socket"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

var shortHelp = map[command.Kind]string{
	command.KindLevel:   "Print the player's level",
	command.KindName:    "Print the player's name",
	command.KindStamina: "Print the player's stamina",
	command.KindSloth:   "Print the player's sloth",
	command.KindPause:   "Pause the running session",
	command.KindResume:  "Resume the paused session",
	command.KindToggle:  "Pause or resume the current session",
	command.KindNext:    "Skip to the next session",
	command.KindPrev:    "Go back to the previous session",
	command.KindFinish:  "Finish the current session now, without overtime",
	command.KindReload:  "Re-read the session config",
}

func newRootCommand() *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:          "pomogamectl",
		Short:        "Control a running pomogame daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&socketPath, "socket", "s", socket.Path(), "daemon socket path")

	for _, kind := range command.Kinds {
		help, ok := shortHelp[kind]
		if !ok {
			continue
		}
		root.AddCommand(&cobra.Command{
			Use:   string(kind),
			Short: help,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd.OutOrStdout(), socketPath, string(kind))
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "jump <id>",
		Short: "Jump to the session with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.OutOrStdout(), socketPath, string(command.KindJump), args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "fetch <format>",
		Short: "Print the current status rendered with an ad-hoc format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.OutOrStdout(), socketPath, string(command.KindFetch), args[0])
		},
	})

	root.AddCommand(newListenCommand(&socketPath))
	return root
}

func newListenCommand(socketPath *string) *cobra.Command {
	var (
		override string
		exit     bool
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream status frames until the daemon closes the connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			words := []string{string(command.KindListen)}
			if override != "" {
				words = append(words, "--override", override)
			}
			if exit {
				words = append(words, "--exit")
			}
			return send(cmd.OutOrStdout(), *socketPath, words...)
		},
	}
	cmd.Flags().StringVarP(&override, "override", "o", "", "formatting override to render with")
	cmd.Flags().BoolVarP(&exit, "exit", "e", false, "print the current frame and exit")
	return cmd
}

// send parses words into a command, delivers it and prints every reply frame
// on its own line.
func send(out io.Writer, path string, words ...string) error {
	c, err := command.Parse(words)
	if err != nil {
		return err
	}

	conn, err := socket.Send(path, c)
	if err != nil {
		return err
	}
	defer conn.Close()

	frames := socket.NewFrameReader(conn)
	for frames.Scan() {
		if _, err := fmt.Fprintln(out, strings.TrimRight(frames.Text(), "\n")); err != nil {
			return err
		}
	}
	if err := frames.Err(); err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}
	return nil
}
