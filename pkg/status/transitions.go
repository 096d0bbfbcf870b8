package status

import "slices"

// TaskTransitions defines valid state transitions for collection tasks.
// Key is the current state, value is a list of valid next states.
var TaskTransitions = map[Task][]Task{
	TaskPending:   {TaskRunning, TaskCancelled, TaskFailed},
	TaskRunning:   {TaskCompleted, TaskFailed, TaskCancelled},
	TaskCompleted: {}, // terminal state
	TaskFailed:    {}, // terminal state; a new trigger creates a new task row
	TaskCancelled: {}, // terminal state
}

// CanTaskTransition checks if a task status transition is valid
func CanTaskTransition(from, to Task) bool {
	allowed, ok := TaskTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// ActiveTaskStatuses returns statuses that indicate an active task
func ActiveTaskStatuses() []Task {
	return []Task{TaskPending, TaskRunning}
}
