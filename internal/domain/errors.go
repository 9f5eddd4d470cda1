package domain

import "errors"

// Error taxonomy shared across services and adapters.
//
// ErrValidation: bad caller input, rejected before any state change.
// ErrNotFound: a referenced site/product/claim/report does not exist.
// ErrDependency: a backing store or collaborator was unreachable. The pure
// scoring/assessment functions never return this; only orchestration I/O can.
// An assessment verdict of no_evidence is a valid outcome, not an error, and
// must never be reported through ErrDependency.
var (
    ErrValidation = errors.New("validation error")
    ErrNotFound   = errors.New("not found")
    ErrDependency = errors.New("dependency unavailable")
)
