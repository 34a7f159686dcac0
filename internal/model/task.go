package model

// TaskKind identifies which classification axis a task evaluates.
type TaskKind string

const (
	// TaskKindUnknown represents an unknown task kind.
	TaskKindUnknown TaskKind = ""
	// TaskKindPlatform answers "is this store built on the platform".
	TaskKindPlatform TaskKind = "platform"
	// TaskKindCategory answers "does this store sell the target category".
	TaskKindCategory TaskKind = "category"
)

// String returns the string representation of the TaskKind.
func (k TaskKind) String() string {
	if k == TaskKindUnknown {
		return unknownStr
	}
	return string(k)
}

// IsValid returns true if this is a known task kind.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindPlatform, TaskKindCategory:
		return true
	default:
		return false
	}
}

// ParseTaskKind converts a string to TaskKind.
func ParseTaskKind(s string) TaskKind {
	switch s {
	case "platform", "shopify":
		return TaskKindPlatform
	case "category", "fashion":
		return TaskKindCategory
	default:
		return TaskKindUnknown
	}
}

// AllTaskKinds returns the task kinds in evaluation order.
func AllTaskKinds() []TaskKind {
	return []TaskKind{TaskKindPlatform, TaskKindCategory}
}

// TaskState is the lifecycle state of a single classification task.
// A task moves pending -> fetched -> scored; a failed fetch jumps
// straight from pending to scored.
type TaskState int

const (
	// TaskStatePending means the target has not been fetched yet.
	TaskStatePending TaskState = iota
	// TaskStateFetched means content is available but no indicator has run.
	TaskStateFetched
	// TaskStateScored is terminal; a ClassificationResult exists.
	TaskStateScored
)

// String returns the string representation of the TaskState.
func (s TaskState) String() string {
	switch s {
	case TaskStatePending:
		return "pending"
	case TaskStateFetched:
		return "fetched"
	case TaskStateScored:
		return "scored"
	default:
		return unknownStr
	}
}

// unknownStr is the string representation for unknown values.
const unknownStr = "unknown"
