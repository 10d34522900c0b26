package reporting

import (
	"sort"

	"github.com/backlot-app/backlot/internal/database"
)

// priorityWeight orders priorities for tie-breaking. Unknown values sort last.
var priorityWeight = map[string]int{
	database.TaskPriorityHigh:   3,
	database.TaskPriorityMedium: 2,
	database.TaskPriorityLow:    1,
}

// TaskFilter narrows a merged task list. Empty fields match everything.
type TaskFilter struct {
	Status     string
	Priority   string
	AssignedTo string
	ProjectID  string
}

func (f TaskFilter) matches(t database.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.AssignedTo != "" && (t.AssignedTo == nil || *t.AssignedTo != f.AssignedTo) {
		return false
	}
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	return true
}

// MergeTasks unions project-derived and directly-assigned tasks,
// de-duplicating by id. A project-derived row wins over an assigned copy of
// the same task.
func MergeTasks(projectTasks, assignedTasks []database.Task) []database.Task {
	seen := make(map[string]struct{}, len(projectTasks))
	merged := make([]database.Task, 0, len(projectTasks)+len(assignedTasks))
	for _, t := range projectTasks {
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range assignedTasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

// SortTasks orders tasks ascending by due date with null due dates after all
// dated rows, breaking ties by priority descending.
func SortTasks(tasks []database.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			// fall through to priority
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		case *a.DueDate != *b.DueDate:
			return *a.DueDate < *b.DueDate
		}
		return priorityWeight[a.Priority] > priorityWeight[b.Priority]
	})
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []database.Task, f TaskFilter) []database.Task {
	out := make([]database.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out
}
