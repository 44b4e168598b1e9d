// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"strings"
)

// Service defines the interface for task backend operations.
// All Conduit API calls go through this interface.
// Commands never talk HTTP directly.
type Service interface {
	// GetTaskByID returns the task with the given id, or nil if none exists.
	// A leading "T" in the id is ignored.
	GetTaskByID(ctx context.Context, id string) (*Task, error)

	// GetTasksByIDs returns the tasks matching ids in API order.
	// Returns an empty slice if nothing matches.
	GetTasksByIDs(ctx context.Context, ids []string) ([]Task, error)

	// GetUserByPHID returns the user with the given phid, or nil if none exists.
	GetUserByPHID(ctx context.Context, phid string) (*User, error)

	// GetUsersByPHIDs returns the users matching phids in API order.
	GetUsersByPHIDs(ctx context.Context, phids []string) ([]User, error)

	// GetChildTasks returns the subtask forest below the given parents.
	// Children of every parent are merged into one flat list of roots.
	// Returns an error if parentIDs is empty or any subtree fetch fails.
	GetChildTasks(ctx context.Context, parentIDs []string) ([]TaskFamily, error)

	// GetTaskFamily returns the task with rootID and all of its descendants,
	// or nil if the root task does not exist.
	GetTaskFamily(ctx context.Context, rootID string) (*TaskFamily, error)
}

// CleanID trims a single leading 'T' from a task id.
// This covers ids copy-pasted from task URLs, e.g. yourphabhost.com/T1234.
func CleanID(id string) string {
	return strings.TrimPrefix(id, "T")
}
