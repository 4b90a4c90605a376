package service

import "errors"

var (
	// ErrNoData is returned when no snapshot has been loaded.
	ErrNoData = errors.New("no snapshot data")

	// ErrUnknownBoard is returned for a leaderboard name that does not exist.
	ErrUnknownBoard = errors.New("unknown leaderboard")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
