package models

import "errors"

// Failure classes shared by the favorites core and its stores. Only
// validation errors reach the presentation layer; the rest are absorbed and
// logged by the synchronizer.
var (
	ErrValidation          = errors.New("invalid place")
	ErrSyncFailure         = errors.New("remote sync failed")
	ErrIdentityUnavailable = errors.New("identity unavailable")
	ErrPersistence         = errors.New("local persistence failed")
)
