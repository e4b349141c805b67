package repository

import "github.com/pkg/errors"

// ErrNotFound distinguishes "no data" from a store failure; callers must not
// conflate the two.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict signals a lost optimistic-concurrency race on a
// conditional update.
var ErrVersionConflict = errors.New("version conflict")
