// Package service defines the backend-agnostic interface for task operations.
package service

// Task represents a single Maniphest task.
type Task struct {
	// ID is the decimal numeric id, without the "T" prefix.
	ID           string   `json:"id" yaml:"id"`
	TaskType     string   `json:"task_type" yaml:"task_type"`
	PHID         string   `json:"phid" yaml:"phid"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	AuthorPHID   string   `json:"author_phid" yaml:"author_phid"`
	AssignedPHID *string  `json:"assigned_phid" yaml:"assigned_phid"`
	Status       string   `json:"status" yaml:"status"`
	Priority     string   `json:"priority" yaml:"priority"`
	Point        *uint64  `json:"point" yaml:"point"`
	ProjectPHIDs []string `json:"project_phids" yaml:"project_phids"`
	Board        *Board   `json:"board" yaml:"board"`
	CreatedAt    uint64   `json:"created_at" yaml:"created_at"`
	UpdatedAt    uint64   `json:"updated_at" yaml:"updated_at"`
}

// Board is the workboard column a task sits in.
type Board struct {
	ID   uint64 `json:"id" yaml:"id"`
	PHID string `json:"phid" yaml:"phid"`
	Name string `json:"name" yaml:"name"`
}

// TaskFamily is a task together with its subtasks.
type TaskFamily struct {
	ParentTask Task         `json:"parent_task" yaml:"parent_task"`
	Children   []TaskFamily `json:"children" yaml:"children"`
}

// User represents a Phabricator user.
type User struct {
	ID        string `json:"id" yaml:"id"`
	PHID      string `json:"phid" yaml:"phid"`
	Username  string `json:"username" yaml:"username"`
	Name      string `json:"name" yaml:"name"`
	CreatedAt uint64 `json:"created_at" yaml:"created_at"`
	UpdatedAt uint64 `json:"updated_at" yaml:"updated_at"`
}

// Watchlist is a named, locally stored collection of task snapshots.
// ID is nil until the watchlist has been persisted.
type Watchlist struct {
	ID    *string `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Tasks []Task  `json:"tasks" yaml:"tasks"`
}

// Flatten returns every task of the forest in pre-order.
func Flatten(families []TaskFamily) []Task {
	var tasks []Task
	for _, f := range families {
		tasks = append(tasks, f.ParentTask)
		tasks = append(tasks, Flatten(f.Children)...)
	}
	return tasks
}
