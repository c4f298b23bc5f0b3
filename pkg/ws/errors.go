package ws

import "errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotStarted       = errors.New("transport not started")
	ErrAlreadyStarted   = errors.New("transport already started")
)
