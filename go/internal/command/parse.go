package command

import (
	"fmt"
	"strings"
)

// Parse builds a command from command-line words, e.g. ["jump", "work"] or
// ["listen", "-o", "bar", "--exit"].
func Parse(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrEmptyCommand
	}

	cmd := Command{Kind: Kind(args[0])}
	if !cmd.Kind.Valid() {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
	rest := args[1:]

	switch cmd.Kind {
	case KindJump:
		if len(rest) != 1 {
			return Command{}, fmt.Errorf("%w: usage: jump <id>", ErrMissingArgument)
		}
		cmd.ID = rest[0]
	case KindFetch:
		if len(rest) != 1 {
			return Command{}, fmt.Errorf("%w: usage: fetch <format>", ErrMissingArgument)
		}
		cmd.Format = rest[0]
	case KindListen:
		if err := parseListen(&cmd, rest); err != nil {
			return Command{}, err
		}
	default:
		if len(rest) != 0 {
			return Command{}, fmt.Errorf("%s takes no arguments, got %q", cmd.Kind, strings.Join(rest, " "))
		}
	}

	return cmd, cmd.Validate()
}

func parseListen(cmd *Command, args []string) error {
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-e" || arg == "--exit":
			cmd.Exit = true
		case arg == "-o" || arg == "--override":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: %s requires a value", ErrMissingArgument, arg)
			}
			i++
			cmd.Override = args[i]
		case strings.HasPrefix(arg, "--override="):
			cmd.Override = strings.TrimPrefix(arg, "--override=")
		default:
			return fmt.Errorf("listen: unexpected argument %q", arg)
		}
	}
	return nil
}
