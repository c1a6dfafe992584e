package workflow

import (
	"fmt"
	"time"

	"github.com/kolosal-ai/seqflow/types"
)

// DefaultMaxExecutionTimeSeconds bounds a whole pipeline run server-side.
const DefaultMaxExecutionTimeSeconds = 300

// Workflow is an ordered pipeline of steps. WorkflowID is caller-chosen
// and globally unique on the remote store; it doubles as the idempotency
// key during registration.
//
// A workflow is mutable only until it is registered. After registration
// the remote copy is immutable by id; changing the definition means
// delete + recreate, which the client's registrar performs automatically.
type Workflow struct {
	WorkflowID              string
	WorkflowName            string
	Description             string
	Steps                   []Step
	GlobalContext           map[string]any
	StopOnFailure           bool
	MaxExecutionTimeSeconds int
}

// New creates an empty workflow with the given id and display name.
func New(workflowID, workflowName string) *Workflow {
	return &Workflow{
		WorkflowID:              workflowID,
		WorkflowName:            workflowName,
		Description:             fmt.Sprintf("Custom workflow: %s", workflowName),
		StopOnFailure:           true,
		MaxExecutionTimeSeconds: DefaultMaxExecutionTimeSeconds,
	}
}

// WithDescription sets the workflow description.
func (w *Workflow) WithDescription(desc string) *Workflow {
	w.Description = desc
	return w
}

// WithGlobalContext replaces the key/value data shared across steps.
func (w *Workflow) WithGlobalContext(ctx map[string]any) *Workflow {
	w.GlobalContext = ctx
	return w
}

// WithStopOnFailure controls whether a failed step halts the pipeline.
func (w *Workflow) WithStopOnFailure(stop bool) *Workflow {
	w.StopOnFailure = stop
	return w
}

// WithMaxExecutionTime bounds the total pipeline runtime server-side.
func (w *Workflow) WithMaxExecutionTime(d time.Duration) *Workflow {
	w.MaxExecutionTimeSeconds = int(d / time.Second)
	return w
}

// AddStep appends a step to the pipeline (fluent interface). Step order
// is execution order.
func (w *Workflow) AddStep(stepID, agentName, prompt string, opts ...StepOption) *Workflow {
	w.Steps = append(w.Steps, NewStep(stepID, agentName, prompt, opts...))
	return w
}

// AgentNames returns the distinct agent names referenced by the steps,
// in first-reference order.
func (w *Workflow) AgentNames() []string {
	seen := make(map[string]struct{}, len(w.Steps))
	names := make([]string, 0, len(w.Steps))
	for _, s := range w.Steps {
		if _, ok := seen[s.AgentName]; ok {
			continue
		}
		seen[s.AgentName] = struct{}{}
		names = append(names, s.AgentName)
	}
	return names
}

// Validate checks the model invariants: a non-empty workflow id, and
// step ids that are non-empty, unique, and bound to an agent name. A
// zero-step workflow is valid.
func (w *Workflow) Validate() error {
	if w.WorkflowID == "" {
		return types.NewError(types.ErrInvalidWorkflow, "workflow id must not be empty")
	}
	seen := make(map[string]struct{}, len(w.Steps))
	for i, s := range w.Steps {
		if s.StepID == "" {
			return types.NewError(types.ErrInvalidWorkflow,
				fmt.Sprintf("step %d has an empty step id", i)).WithWorkflowID(w.WorkflowID)
		}
		if _, dup := seen[s.StepID]; dup {
			return types.NewError(types.ErrInvalidWorkflow,
				fmt.Sprintf("duplicate step id %q", s.StepID)).WithWorkflowID(w.WorkflowID)
		}
		seen[s.StepID] = struct{}{}
		if s.AgentName == "" {
			return types.NewError(types.ErrInvalidWorkflow,
				fmt.Sprintf("step %q has no agent name", s.StepID)).WithWorkflowID(w.WorkflowID)
		}
	}
	return nil
}
