package session

import "errors"

// Sentinel errors returned by Session.
var (
	ErrVoteInProgress     = errors.New("vote already in progress")
	ErrInvalidSlot        = errors.New("slot must be 0 or 1")
	ErrNoPair             = errors.New("no comparison available")
	ErrNotReady           = errors.New("session not started")
	ErrBusy               = errors.New("session busy")
	ErrSessionUnavailable = errors.New("session unavailable")
)
