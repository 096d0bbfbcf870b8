package status

// Task represents the status of a collection task
// @Description Task status
// @enum pending,running,completed,failed,cancelled
type Task string

const (
	TaskPending   Task = "pending"   // waiting to start
	TaskRunning   Task = "running"   // being driven by the orchestrator
	TaskCompleted Task = "completed" // finished, possibly with per-source errors
	TaskFailed    Task = "failed"    // no source produced anything
	TaskCancelled Task = "cancelled" // cancelled by user between pages
)

// TaskType represents the scope of a collection run
// @Description Task type
// @enum incremental,full,category
type TaskType string

const (
	TypeIncremental TaskType = "incremental" // bounded page cap per source
	TypeFull        TaskType = "full"        // all pages until hasMore=false
	TypeCategory    TaskType = "category"    // single category, bounded pages
)

// SourceType represents the API dialect a resource site speaks
// @Description Source dialect
// @enum cms,tvbox
type SourceType string

const (
	SourceCMS   SourceType = "cms"   // maccms-style videolist JSON/XML
	SourceTVBox SourceType = "tvbox" // TVBox-style JSON
)

// AllTaskStatuses returns all valid task statuses
func AllTaskStatuses() []Task {
	return []Task{TaskPending, TaskRunning, TaskCompleted, TaskFailed, TaskCancelled}
}

// AllTaskTypes returns all valid task types
func AllTaskTypes() []TaskType {
	return []TaskType{TypeIncremental, TypeFull, TypeCategory}
}

// IsTerminal returns true if the task status is terminal (no further transitions)
func (t Task) IsTerminal() bool {
	return t == TaskCompleted || t == TaskFailed || t == TaskCancelled
}

// IsActive returns true if the task is still active (pending or running)
func (t Task) IsActive() bool {
	return t == TaskPending || t == TaskRunning
}

func (t TaskType) Valid() bool {
	return t == TypeIncremental || t == TypeFull || t == TypeCategory
}

func (s SourceType) Valid() bool {
	return s == SourceCMS || s == SourceTVBox
}
