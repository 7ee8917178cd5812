package timer

// touchState refreshes a resumed state's Since to the current instant, keeping
// Dest. It runs on every exit from Start, so a pause handler that computes
// Dest - Since after cancelling a run gets the time that was actually left.
func (e *Engine) touchState() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if e.state.Kind == KindResumed {
		e.state = Resumed(e.clock.Now(), e.state.Dest)
	}
}
