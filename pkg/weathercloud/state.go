package weathercloud

import "go.uber.org/multierr"

type state int

const (
	stateIdle state = iota
	stateAwaitingLogin
	stateAwaitingFetch
	stateDoneSuccess
	stateDoneFailure
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingLogin:
		return "awaiting_login"
	case stateAwaitingFetch:
		return "awaiting_fetch"
	case stateDoneSuccess:
		return "done_success"
	case stateDoneFailure:
		return "done_failure"
	}
	return "unknown"
}

func (s state) done() bool {
	return s == stateDoneSuccess || s == stateDoneFailure
}

type eventKind int

const (
	eventStart eventKind = iota
	eventLoginOK
	eventLoginFailed
	eventFetchOK
	eventFetchFailed
)

type event struct {
	kind eventKind
	// hasSession is only read for eventStart.
	hasSession bool
	err        error
}

// cycle is the state of one refresh cycle.
type cycle struct {
	state state
	// reused is set while the pending fetch runs on a session from an
	// earlier cycle.
	reused   bool
	relogged bool
	logins   int
	fetches  int
	err      error
}

// step applies ev to c. It performs no I/O. A failed fetch on a reused
// session leads to exactly one forced login; any other failure ends the
// cycle.
func step(c cycle, ev event) cycle {
	switch c.state {
	case stateIdle:
		if ev.kind != eventStart {
			return c
		}
		if ev.hasSession {
			c.state = stateAwaitingFetch
			c.reused = true
		} else {
			c.state = stateAwaitingLogin
		}

	case stateAwaitingLogin:
		switch ev.kind {
		case eventLoginOK:
			c.logins++
			c.state = stateAwaitingFetch
			c.reused = false
		case eventLoginFailed:
			c.logins++
			c.err = multierr.Append(c.err, ev.err)
			c.state = stateDoneFailure
		}

	case stateAwaitingFetch:
		switch ev.kind {
		case eventFetchOK:
			c.fetches++
			c.state = stateDoneSuccess
		case eventFetchFailed:
			c.fetches++
			c.err = multierr.Append(c.err, ev.err)
			if c.reused && !c.relogged {
				c.relogged = true
				c.state = stateAwaitingLogin
				return c
			}
			c.state = stateDoneFailure
		}
	}
	return c
}
