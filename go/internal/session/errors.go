package session

import "errors"

// ErrUnknownSession is returned when a session id is not present in the config
var ErrUnknownSession = errors.New("unknown session")

// ErrNoSessions is returned when a config defines no sessions
var ErrNoSessions = errors.New("no sessions configured")
