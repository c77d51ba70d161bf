// Package repository implements persistence for deals, special events,
// extra packages, payments and ad spots on MySQL.  Sentinel errors
// defined here let handlers distinguish failure scenarios without
// string matching; not-found conditions surface as sql.ErrNoRows from
// the individual repositories.
package repository

import "errors"

// ErrOverlappingEvent is returned when a special event window would
// share at least one day with an existing event of the same deal.
// Overlapping windows would make fee resolution ambiguous, so they are
// rejected at creation time.  Handlers translate this into HTTP 409.
var ErrOverlappingEvent = errors.New("overlapping special event window")

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as soft deleting a deal that still has pending
// spots.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
