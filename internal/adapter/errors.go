// internal/adapter/errors.go
package adapter

import "errors"

var (
	// ErrInvalidConfig is returned when the directory layout is unusable:
	// a path that is not a directory, or two path+prefix+suffix triples that collide.
	ErrInvalidConfig = errors.New("invalid adapter config")

	// ErrStreamOpen is returned by LoadBatch when a claimed file cannot be opened.
	// The file stays under its processing name for operator intervention.
	ErrStreamOpen = errors.New("cannot open claimed file")

	// ErrUnknownOption is returned for a control event naming no known option.
	ErrUnknownOption = errors.New("unknown option")

	// ErrUnknownTransaction is returned when no file names are registered for a transaction.
	ErrUnknownTransaction = errors.New("unknown transaction")
)

// ErrNotDynamic is returned when an option write is attempted after initialisation.
var ErrNotDynamic = errors.New("option is not dynamically settable")
