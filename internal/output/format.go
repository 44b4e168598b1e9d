// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"phab/internal/service"
)

const (
	// NoBoard is printed for tasks that are not on any workboard.
	NoBoard = "NoBoard"

	// invalidStatus marks tasks hidden from the tree view.
	invalidStatus = "invalid"
)

// FormatTaskFamilies prints a task forest as an indented tree.
// Tasks with status "invalid" are skipped together with their subtasks.
// Format: "{indent}[T{ID} {STATUS} - {BOARD} point: {POINT}] {NAME}\n"
// with two spaces of indent per level.
func FormatTaskFamilies(w io.Writer, families []service.TaskFamily, level int) {
	indent := strings.Repeat(" ", level*2)

	for _, f := range families {
		if f.ParentTask.Status == invalidStatus {
			continue
		}
		fmt.Fprintf(w, "%s%s\n", indent, taskLine(f.ParentTask))
		FormatTaskFamilies(w, f.Children, level+1)
	}
}

// FormatTask prints a single task line without indent.
func FormatTask(w io.Writer, task service.Task) {
	fmt.Fprintln(w, taskLine(task))
}

func taskLine(task service.Task) string {
	board := NoBoard
	if task.Board != nil {
		board = task.Board.Name
	}
	var point uint64
	if task.Point != nil {
		point = *task.Point
	}
	return fmt.Sprintf("[T%s %s - %s point: %d] %s", task.ID, task.Status, board, point, normalizeName(task.Name))
}

// FormatUser prints a user line.
// Format: "{USERNAME} ({NAME}) {PHID}\n"
func FormatUser(w io.Writer, user service.User) {
	fmt.Fprintf(w, "%s (%s) %s\n", user.Username, user.Name, user.PHID)
}

// FormatWatchlistName prints a watchlist line for the list command.
// Format: "{ID}  {NAME} ({N} tasks)\n"
func FormatWatchlistName(w io.Writer, wl service.Watchlist) {
	id := ""
	if wl.ID != nil {
		id = *wl.ID
	}
	fmt.Fprintf(w, "%s  %s (%d tasks)\n", id, normalizeName(wl.Name), len(wl.Tasks))
}

// WriteJSON writes v as a single line of JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteYAML writes v as a YAML document.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// normalizeName replaces newlines so every record stays on one line.
// Empty names become "(untitled)".
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.ReplaceAll(name, "\n", " ")

	if strings.TrimSpace(name) == "" {
		return "(untitled)"
	}
	return name
}
