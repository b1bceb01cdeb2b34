package types

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrUnknownEvent = errors.New("unknown event")

	ErrInvalidLog = errors.New("invalid log")

	ErrWatcherStarted = errors.New("cannot Start() watcher that has already been started")

	ErrWatcherNotOpen = errors.New("cannot Close() watcher that isn't open")
)
