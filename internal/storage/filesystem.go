package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gosimple/slug"

	"phab/internal/service"
)

// watchlistsTable is the top-level key holding watchlists.
const watchlistsTable = "watchlists"

type table map[string]service.Watchlist

// Filesystem stores all tables in a single JSON file.
// The whole file is rewritten on every mutation. It assumes a single writer.
type Filesystem struct {
	path string
	db   map[string]table
}

var _ Storage = (*Filesystem)(nil)

// NewFilesystem opens the database at path, creating it if missing.
func NewFilesystem(path string) (*Filesystem, error) {
	s := &Filesystem{
		path: path,
		db:   map[string]table{},
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Filesystem) Path() string {
	return s.path
}

// Close implements Storage. Every mutation is already on disk.
func (s *Filesystem) Close() error {
	return nil
}

// Reload replaces the in-memory state with the file content.
func (s *Filesystem) Reload() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		s.watchlists()
		if err := s.persist(); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	db := map[string]table{}
	if err := json.Unmarshal(data, &db); err != nil {
		return fmt.Errorf("invalid database %s: %w", s.path, err)
	}
	s.db = db
	return nil
}

func (s *Filesystem) watchlists() table {
	t, ok := s.db[watchlistsTable]
	if !ok || t == nil {
		t = table{}
		s.db[watchlistsTable] = t
	}
	return t
}

func (s *Filesystem) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}

	data, err := json.Marshal(s.db)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// CreateWatchlist implements Storage.
func (s *Filesystem) CreateWatchlist(w service.Watchlist) (service.Watchlist, error) {
	id := slug.Make(w.Name)
	if id == "" {
		return service.Watchlist{}, fmt.Errorf("invalid watchlist name %q", w.Name)
	}
	w.ID = &id
	w.Tasks = append([]service.Task{}, w.Tasks...)

	s.watchlists()[id] = w
	if err := s.persist(); err != nil {
		return service.Watchlist{}, err
	}
	return w, nil
}

// AddToWatchlist implements Storage.
func (s *Filesystem) AddToWatchlist(watchlistID string, task service.Task) error {
	t := s.watchlists()
	w, ok := t[watchlistID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWatchlistNotFound, watchlistID)
	}

	w.Tasks = append(w.Tasks, task)
	t[watchlistID] = w
	return s.persist()
}

// GetWatchlists implements Storage.
func (s *Filesystem) GetWatchlists() ([]service.Watchlist, error) {
	t := s.watchlists()
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]service.Watchlist, len(ids))
	for i, id := range ids {
		result[i] = t[id]
	}
	return result, nil
}

// GetWatchlistByID implements Storage.
func (s *Filesystem) GetWatchlistByID(watchlistID string) (*service.Watchlist, error) {
	w, ok := s.watchlists()[watchlistID]
	if !ok {
		return nil, nil
	}
	w.Tasks = append([]service.Task{}, w.Tasks...)
	return &w, nil
}
