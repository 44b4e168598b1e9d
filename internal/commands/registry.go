package commands

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry holds registered commands keyed by their space-separated path.
// Every proper prefix of a path is a group ("watchlist" for
// "watchlist add"); a path can't be both a group and a command.
type Registry struct {
	mu     sync.RWMutex
	cmds   map[string]Command // full path and alias paths map to command
	groups map[string]int     // group path to number of commands below it
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds:   make(map[string]Command),
		groups: make(map[string]int),
	}
}

// Register adds a command to the registry.
// Returns an error if the path or any alias path is taken, either by a
// command or by a group.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := strings.Fields(c.Name())
	if len(parts) == 0 {
		return fmt.Errorf("command has no name")
	}
	name := strings.Join(parts, " ")

	paths := append([]string{name}, aliasPaths(parts, c.Aliases())...)
	for _, p := range paths {
		if _, exists := r.cmds[p]; exists {
			return fmt.Errorf("command already registered: %s", p)
		}
		if r.groups[p] > 0 {
			return fmt.Errorf("command path is a group: %s", p)
		}
	}
	for _, g := range groupPaths(parts) {
		if _, exists := r.cmds[g]; exists {
			return fmt.Errorf("group path is a command: %s", g)
		}
	}

	for _, p := range paths {
		r.cmds[p] = c
	}
	for _, g := range groupPaths(parts) {
		r.groups[g]++
	}
	return nil
}

// aliasPaths expands aliases into full paths under the command's group.
// An alias "ls" of "watchlist list" becomes "watchlist ls".
func aliasPaths(parts, aliases []string) []string {
	parent := strings.Join(parts[:len(parts)-1], " ")
	paths := make([]string, len(aliases))
	for i, alias := range aliases {
		if parent == "" {
			paths[i] = alias
		} else {
			paths[i] = parent + " " + alias
		}
	}
	return paths
}

// groupPaths returns every proper prefix of parts, shortest first.
func groupPaths(parts []string) []string {
	groups := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		groups = append(groups, strings.Join(parts[:i], " "))
	}
	return groups
}

// Find looks up a command by path or alias path.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[strings.Join(strings.Fields(name), " ")]
	return cmd, ok
}

// Groups returns all group paths sorted so that parents come first.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]string, 0, len(r.groups))
	for g := range r.groups {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// All returns all unique commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]Command)
	for _, cmd := range r.cmds {
		seen[cmd.Name()] = cmd
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = seen[name]
	}
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
