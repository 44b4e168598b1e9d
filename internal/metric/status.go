// Package metric computes summary numbers over task lists.
package metric

import "phab/internal/service"

// CountDoneTasks counts tasks whose status is one of doneStatuses.
func CountDoneTasks(tasks []service.Task, doneStatuses map[string]struct{}) int {
	n := 0
	for _, t := range tasks {
		if _, ok := doneStatuses[t.Status]; ok {
			n++
		}
	}
	return n
}

// StatusSet builds a status set from a list.
func StatusSet(statuses ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return set
}
