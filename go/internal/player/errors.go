package player

import "errors"

// ErrInvalidPath is returned when the player store has no usable file path
var ErrInvalidPath = errors.New("invalid player data path")

// ErrNotLoaded is returned when the app is used before Load succeeds
var ErrNotLoaded = errors.New("player not loaded")
