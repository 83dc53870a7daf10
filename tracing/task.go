package tracing

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	What string `json:"what"`
}

// A Task is a unit of work performed by a domain, such as one address
// translation.
type Task struct {
	ID     string     `json:"id"`
	Kind   string     `json:"kind"`
	What   string     `json:"what"`
	Where  string     `json:"where"`
	Steps  []TaskStep `json:"steps"`
	Detail any        `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool
