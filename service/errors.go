package service

import "errors"

// ErrReleased indicates use of a service after its Release. This is a
// caller bug and is surfaced immediately.
var ErrReleased = errors.New("service: service has been released")
