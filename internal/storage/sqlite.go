package storage

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	_ "github.com/mattn/go-sqlite3"

	"phab/internal/service"
)

//go:embed schema.sql
var schema string

// SQLite stores watchlists in a SQLite database.
// Tasks are kept as JSON snapshots in insertion order.
type SQLite struct {
	path string
	db   *sql.DB
}

var _ Storage = (*SQLite)(nil)

// NewSQLite opens the database at path, creating it and its schema if missing.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid database %s: %w", path, err)
	}
	return &SQLite{path: path, db: db}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close implements Storage.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateWatchlist implements Storage.
func (s *SQLite) CreateWatchlist(w service.Watchlist) (service.Watchlist, error) {
	id := slug.Make(w.Name)
	if id == "" {
		return service.Watchlist{}, fmt.Errorf("invalid watchlist name %q", w.Name)
	}
	w.ID = &id
	w.Tasks = append([]service.Task{}, w.Tasks...)

	tx, err := s.db.Begin()
	if err != nil {
		return service.Watchlist{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM `watchlists` WHERE `id` = ?", id); err != nil {
		return service.Watchlist{}, err
	}
	if _, err := tx.Exec("INSERT INTO `watchlists` (`id`, `name`) VALUES (?, ?)", id, w.Name); err != nil {
		return service.Watchlist{}, err
	}
	for i, t := range w.Tasks {
		if err := insertTask(tx, id, i, t); err != nil {
			return service.Watchlist{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return service.Watchlist{}, err
	}
	return w, nil
}

// AddToWatchlist implements Storage.
func (s *SQLite) AddToWatchlist(watchlistID string, task service.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow(
		"SELECT COALESCE(MAX(t.`position`) + 1, 0) FROM `watchlists` w LEFT JOIN `watchlist_tasks` t ON t.`watchlist_id` = w.`id` WHERE w.`id` = ? GROUP BY w.`id`",
		watchlistID,
	).Scan(&next)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrWatchlistNotFound, watchlistID)
	}
	if err != nil {
		return err
	}

	if err := insertTask(tx, watchlistID, next, task); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTask(tx *sql.Tx, watchlistID string, position int, task service.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO `watchlist_tasks` (`watchlist_id`, `position`, `task`) VALUES (?, ?, ?)", watchlistID, position, string(data))
	return err
}

// GetWatchlists implements Storage.
func (s *SQLite) GetWatchlists() ([]service.Watchlist, error) {
	rows, err := s.db.Query("SELECT `id`, `name` FROM `watchlists` ORDER BY `id`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []service.Watchlist{}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result = append(result, service.Watchlist{ID: &id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		tasks, err := s.tasks(*result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Tasks = tasks
	}
	return result, nil
}

// GetWatchlistByID implements Storage.
func (s *SQLite) GetWatchlistByID(watchlistID string) (*service.Watchlist, error) {
	var name string
	err := s.db.QueryRow("SELECT `name` FROM `watchlists` WHERE `id` = ?", watchlistID).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks(watchlistID)
	if err != nil {
		return nil, err
	}
	id := watchlistID
	return &service.Watchlist{ID: &id, Name: name, Tasks: tasks}, nil
}

func (s *SQLite) tasks(watchlistID string) ([]service.Task, error) {
	rows, err := s.db.Query("SELECT `task` FROM `watchlist_tasks` WHERE `watchlist_id` = ? ORDER BY `position`", watchlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []service.Task{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var t service.Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("invalid task snapshot in %s: %w", watchlistID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
