package service

import "errors"

// ErrCheckInProgress means another process holds the lock for the same family and date.
var ErrCheckInProgress = errors.New("daily task check already in progress")
