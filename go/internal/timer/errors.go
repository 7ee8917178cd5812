package timer

import "errors"

// ErrInvalidRange is returned when a run is requested with dest not after start
// or with a non-positive tick interval
var ErrInvalidRange = errors.New("invalid timer range")

// ErrAlreadyRunning is returned when Start is called while another run is active
var ErrAlreadyRunning = errors.New("timer already running")
