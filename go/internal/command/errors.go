package command

import "errors"

// ErrUnknownCommand is returned for a command kind the daemon does not handle
var ErrUnknownCommand = errors.New("unknown command")

// ErrMissingArgument is returned when a command lacks a required argument
var ErrMissingArgument = errors.New("missing argument")

// ErrEmptyCommand is returned when a connection closes before sending a command
var ErrEmptyCommand = errors.New("empty command")

// ErrCommandTooLarge is returned when no terminator arrives within MaxCommandSize bytes
var ErrCommandTooLarge = errors.New("command too large")
