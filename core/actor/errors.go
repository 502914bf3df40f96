package actor

import "errors"

var (
	ErrNotRoot        = errors.New("actor is not a root actor")
	ErrAlreadyStarted = errors.New("actor already started")
	ErrStopped        = errors.New("actor stopped")
)
