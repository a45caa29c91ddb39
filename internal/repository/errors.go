// Package repository defines error types that are reused across
// repositories so higher layers can tell failure scenarios apart.
package repository

import "errors"

// ErrConflict is returned when an insert collides with an existing record,
// such as a second audit entry for the same request id.
var ErrConflict = errors.New("conflict")
