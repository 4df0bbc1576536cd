package constants

type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
	StatusCanceled   TaskStatus = "CANCELED"
)

func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusCanceled
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type PickOutcome string

const (
	PickOK      PickOutcome = "OK"
	PickMissing PickOutcome = "MISSING"
)

type Role string

const (
	RoleAttendant Role = "attendant"
	RolePicker    Role = "picker"
	RoleAdmin     Role = "admin"
)

// Timeline actions, in the order a task normally moves through them.
const (
	ActionCreated   = "CREATED"
	ActionStarted   = "STARTED"
	ActionPaused    = "PAUSED"
	ActionResumed   = "RESUMED"
	ActionCompleted = "COMPLETED"
	ActionCanceled  = "CANCELED"
)

// Broadcast event types pushed to connected clients.
const (
	EventNewTask       = "new_task"
	EventTaskStarted   = "task_started"
	EventTaskPaused    = "task_paused"
	EventTaskResumed   = "task_resumed"
	EventTaskCompleted = "task_completed"
	EventTaskCanceled  = "task_canceled"
	EventTaskDeleted   = "task_deleted"
	EventItemUpdated   = "item_updated"
)
