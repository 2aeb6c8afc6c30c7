package events

// TaskEvent records an async task lifecycle transition.
type TaskEvent struct {
	BaseEvent

	// TaskID is the task identifier ("task_" + hex).
	TaskID string `json:"task_id"`

	// Tool is the tool the task is executing.
	Tool string `json:"tool"`

	// Status is the new task status (running, completed, failed, cancelled).
	Status string `json:"status"`

	// Active is the number of non-terminal tasks after this transition.
	Active int `json:"active"`
}

// NewTask builds a TaskEvent for a lifecycle transition.
func NewTask(taskID, tool, status string, active int) *TaskEvent {
	return &TaskEvent{
		BaseEvent: NewBase(EventTypeTask),
		TaskID:    taskID,
		Tool:      tool,
		Status:    status,
		Active:    active,
	}
}

// ServerEvent marks server lifecycle transitions.
type ServerEvent struct {
	BaseEvent

	// State is "started" or "stopped".
	State string `json:"state"`

	// Transport is "stdio" or "http".
	Transport string `json:"transport"`

	// Toolsets lists the enabled toolsets.
	Toolsets []string `json:"toolsets"`
}

// NewServer builds a ServerEvent.
func NewServer(state, transport string, toolsets []string) *ServerEvent {
	return &ServerEvent{
		BaseEvent: NewBase(EventTypeServer),
		State:     state,
		Transport: transport,
		Toolsets:  toolsets,
	}
}
