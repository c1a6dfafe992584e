package types

// StepResult is the normalized outcome of a single workflow step.
type StepResult struct {
	Success         bool    `json:"success"`
	Output          string  `json:"output,omitempty"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMS float64 `json:"execution_time_ms,omitempty"`
}

// CanonicalResult is the transport-independent execution outcome. Both
// execution strategies and every known server envelope shape normalize
// into this one structure, so callers never branch on where a result
// came from.
//
// StepResults is always non-nil and keyed by step_id; FinalOutput is the
// best-effort "last meaningful text" of the pipeline, or empty.
type CanonicalResult struct {
	WorkflowID           string                `json:"workflow_id"`
	Success              bool                  `json:"success"`
	TotalExecutionTimeMS float64               `json:"total_execution_time_ms"`
	StepResults          map[string]StepResult `json:"step_results"`
	FinalOutput          string                `json:"final_output,omitempty"`
	ErrorMessage         string                `json:"error_message,omitempty"`
}

// StepIDs returns the step ids present in the result. Order is not
// significant; the map carries no execution ordering.
func (r *CanonicalResult) StepIDs() []string {
	ids := make([]string, 0, len(r.StepResults))
	for id := range r.StepResults {
		ids = append(ids, id)
	}
	return ids
}
