package database

import "errors"

var (
	// ErrNotFound is returned when no database exists and creation is disabled.
	ErrNotFound = errors.New("database not found")
	// ErrInvalidPage is returned when a page number is below 1.
	ErrInvalidPage = errors.New("page must be 1 or greater")
	// ErrInvalidPageSize is returned when a page size is outside 1..100.
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
	// ErrInvalidLimit is returned when a rank limit is outside 1..50.
	ErrInvalidLimit = errors.New("rank limit must be between 1 and 50")
	// ErrInvalidRegion is returned when a ranking is requested without a known region.
	ErrInvalidRegion = errors.New("rank requires a known region")
	// ErrEmptyDomain is returned when a record has no domain.
	ErrEmptyDomain = errors.New("record domain cannot be empty")
)
