package robots

import "errors"

var (
	// ErrRobotsUnavailable is wrapped into a fail-closed denial when robots.txt could not be fetched.
	ErrRobotsUnavailable = errors.New("robots.txt unavailable")

	// ErrInvalidMode is returned for an unknown Mode.
	ErrInvalidMode = errors.New("invalid robots mode: must be \"heuristic\" or \"strict\"")
)
