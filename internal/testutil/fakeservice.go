// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sync"

	"phab/internal/service"
)

// ErrNoParents mirrors the backend's validation of empty parent lists.
var ErrNoParents = errors.New("parent ids cannot be empty")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	tasks    map[string]service.Task
	order    []string            // task ids in insertion order
	children map[string][]string // parent id -> child ids
	users    map[string]service.User

	// Error injection for testing
	GetTaskErr    error
	GetTasksErr   error
	GetUserErr    error
	GetUsersErr   error
	ChildTasksErr map[string]error // parent id -> error
	TaskFamilyErr error
}

var _ service.Service = (*FakeService)(nil)

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		tasks:         make(map[string]service.Task),
		children:      make(map[string][]string),
		users:         make(map[string]service.User),
		ChildTasksErr: make(map[string]error),
	}
}

// AddTask adds a task. If parentIDs are given the task becomes their subtask.
func (f *FakeService) AddTask(task service.Task, parentIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		f.order = append(f.order, task.ID)
	}
	f.tasks[task.ID] = task
	for _, p := range parentIDs {
		f.children[p] = append(f.children[p], task.ID)
	}
}

// AddUser adds a user.
func (f *FakeService) AddUser(user service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.PHID] = user
}

// GetTaskByID implements service.Service.
func (f *FakeService) GetTaskByID(ctx context.Context, id string) (*service.Task, error) {
	if f.GetTaskErr != nil {
		return nil, f.GetTaskErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	task, ok := f.tasks[service.CleanID(id)]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

// GetTasksByIDs implements service.Service.
func (f *FakeService) GetTasksByIDs(ctx context.Context, ids []string) ([]service.Task, error) {
	if f.GetTasksErr != nil {
		return nil, f.GetTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[service.CleanID(id)] = true
	}
	result := []service.Task{}
	for _, id := range f.order {
		if wanted[id] {
			result = append(result, f.tasks[id])
		}
	}
	return result, nil
}

// GetUserByPHID implements service.Service.
func (f *FakeService) GetUserByPHID(ctx context.Context, phid string) (*service.User, error) {
	if f.GetUserErr != nil {
		return nil, f.GetUserErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	user, ok := f.users[phid]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUsersByPHIDs implements service.Service.
func (f *FakeService) GetUsersByPHIDs(ctx context.Context, phids []string) ([]service.User, error) {
	if f.GetUsersErr != nil {
		return nil, f.GetUsersErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := []service.User{}
	for _, phid := range phids {
		if u, ok := f.users[phid]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

// GetChildTasks implements service.Service.
func (f *FakeService) GetChildTasks(ctx context.Context, parentIDs []string) ([]service.TaskFamily, error) {
	if len(parentIDs) == 0 {
		return nil, ErrNoParents
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.childFamilies(parentIDs)
}

func (f *FakeService) childFamilies(parentIDs []string) ([]service.TaskFamily, error) {
	families := []service.TaskFamily{}
	for _, p := range parentIDs {
		p = service.CleanID(p)
		if err := f.ChildTasksErr[p]; err != nil {
			return nil, err
		}
		for _, id := range f.children[p] {
			sub, err := f.childFamilies([]string{id})
			if err != nil {
				return nil, err
			}
			families = append(families, service.TaskFamily{ParentTask: f.tasks[id], Children: sub})
		}
	}
	return families, nil
}

// GetTaskFamily implements service.Service.
func (f *FakeService) GetTaskFamily(ctx context.Context, rootID string) (*service.TaskFamily, error) {
	if f.TaskFamilyErr != nil {
		return nil, f.TaskFamilyErr
	}
	parent, err := f.GetTaskByID(ctx, rootID)
	if err != nil || parent == nil {
		return nil, err
	}
	children, err := f.GetChildTasks(ctx, []string{parent.ID})
	if err != nil {
		return nil, err
	}
	return &service.TaskFamily{ParentTask: *parent, Children: children}, nil
}
