// Package storage persists watchlists.
package storage

import (
	"errors"

	"phab/internal/service"
)

// ErrWatchlistNotFound is returned when a watchlist id is unknown.
var ErrWatchlistNotFound = errors.New("watchlist not found")

// Storage defines watchlist persistence.
type Storage interface {
	// CreateWatchlist stores w under the slug of its name and returns it with
	// its id set. An existing watchlist with the same slug is replaced.
	CreateWatchlist(w service.Watchlist) (service.Watchlist, error)

	// AddToWatchlist appends a snapshot of task to the watchlist.
	// Returns ErrWatchlistNotFound if the id is unknown.
	AddToWatchlist(watchlistID string, task service.Task) error

	// GetWatchlists returns all watchlists ordered by id.
	GetWatchlists() ([]service.Watchlist, error)

	// GetWatchlistByID returns the watchlist, or nil if the id is unknown.
	GetWatchlistByID(watchlistID string) (*service.Watchlist, error)

	// Close releases the underlying database.
	Close() error
}
