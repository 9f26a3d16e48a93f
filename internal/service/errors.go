package service

import "errors"

var (
	// ErrClosed indicates the service no longer accepts new watches.
	ErrClosed = errors.New("service: closed")
	// ErrHistoryDisabled indicates no session repository is configured.
	ErrHistoryDisabled = errors.New("service: watch history disabled")
)
