package client

// StreamEventType classifies incremental events observed during
// streaming execution.
type StreamEventType string

const (
	// EventStepStart is emitted when the server opens a new step.
	EventStepStart StreamEventType = "step_start"
	// EventToken is emitted for each incremental piece of step output.
	EventToken StreamEventType = "token"
	// EventStepComplete is emitted when a step finishes.
	EventStepComplete StreamEventType = "step_complete"
	// EventWorkflowComplete is emitted once a terminal result is seen.
	EventWorkflowComplete StreamEventType = "workflow_complete"
	// EventError is emitted for server-reported errors. An error event
	// does not terminate the stream by itself.
	EventError StreamEventType = "error"
)

// StreamEvent is one incremental observation of a streaming execution.
// Token events carry the decoded text in Token; step events carry the
// step identity; error events carry Err.
type StreamEvent struct {
	Type      StreamEventType
	StepID    string
	StepName  string
	AgentName string
	Token     string
	Success   bool
	Err       string
}

// StreamHandler receives stream events as they are decoded. Handlers
// run on the reading goroutine: a slow handler slows the read loop, so
// delivery stays within one network read of production. A nil handler
// discards events.
type StreamHandler func(StreamEvent)
