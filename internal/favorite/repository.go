package favorite

import "context"

// Repository defines the interface for saved route persistence.
type Repository interface {
	// Load returns the owner's saved routes in insertion order.
	Load(ctx context.Context, ownerID string) (*Set, error)

	// Update applies fn to the owner's saved routes as a single read-modify-write.
	// Nothing is persisted when fn returns an error.
	Update(ctx context.Context, ownerID string, fn func(*Set) error) error

	// Clear deletes all of the owner's saved routes.
	Clear(ctx context.Context, ownerID string) error

	// ListOwnersRoutes returns the most saved station pairs across all owners.
	ListOwnersRoutes(ctx context.Context, limit int) ([]Pair, error)
}
