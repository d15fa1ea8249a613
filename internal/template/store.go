package template

import "context"

// Store provides CRUD operations for template definitions.
// Implementations must be safe for concurrent use; writes must never let an
// in-flight reader observe a partially updated body.
type Store interface {
	// Create inserts a new definition. The definition is validated before
	// insertion. Returns [ErrDuplicateKey] if the key is already taken.
	Create(ctx context.Context, def Definition) error

	// Get retrieves a definition by key. Returns [ErrNotFound] when absent.
	Get(ctx context.Context, key string) (Definition, error)

	// List returns all definitions.
	List(ctx context.Context) ([]Definition, error)

	// Upsert creates or replaces a definition (useful for YAML pack import).
	// The definition is validated before persistence.
	Upsert(ctx context.Context, def Definition) error

	// Delete removes a definition by key. Deleting a non-existent key is
	// not an error.
	Delete(ctx context.Context, key string) error
}
