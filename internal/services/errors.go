package services

import "errors"

var (
	// ErrNotFound means the user, owned card or catalog card does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVariantPriceMissing means a fresh quote no longer carries the card's selected variant.
	ErrVariantPriceMissing = errors.New("selected price variant missing from quote")

	ErrNotInCollection  = errors.New("card is not in the collection")
	ErrInvalidBinder    = errors.New("invalid binder")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrConcurrentUpdate = errors.New("collection was modified concurrently")

	// Collaborator failures are wrapped with these so callers can classify them.
	ErrStoreFailure       = errors.New("store failure")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
