package hydrate

import (
	"errors"

	"github.com/ammar0144/hydra4go/pkg/relpath"
	"github.com/ammar0144/hydra4go/pkg/schema"
)

var (
	// ErrNotFound is returned by loaders when the root entity no longer exists
	ErrNotFound = errors.New("entity not found")

	// ErrTaxRateNotFound is returned by TaxRateResolver when no rate applies
	ErrTaxRateNotFound = errors.New("tax rate not found")

	// ErrRootMismatch is returned when a loader answers with a different root
	ErrRootMismatch = errors.New("loaded root does not match entity")

	// ErrNoPrimaryKey is returned when a root that needs fetching has no key
	ErrNoPrimaryKey = errors.New("entity has no primary key")

	// ErrInvalidRelation is returned when a path segment is not a relation of the type at that depth
	ErrInvalidRelation = schema.ErrInvalidRelation

	// ErrUnregisteredEntity is returned for entities whose type is unknown to the registry
	ErrUnregisteredEntity = schema.ErrUnregisteredEntity

	// ErrInvalidPath is returned for empty paths or paths with blank segments
	ErrInvalidPath = relpath.ErrInvalidPath
)

// InvalidRelationError carries the entity type, path and offending segment
type InvalidRelationError = schema.RelationError

// IsNotFound checks if error is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigError reports whether err comes from a malformed request rather than data access.
// Such errors are raised before any fetch and are not worth retrying.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidRelation) ||
		errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrUnregisteredEntity)
}
