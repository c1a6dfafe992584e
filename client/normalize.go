package client

import (
	"sort"
	"time"

	"github.com/kolosal-ai/seqflow/types"
)

// stepCollectionKeys is the envelope probe order for the step-result
// collection; the first present key wins.
var stepCollectionKeys = []string{"step_results", "steps", "executed_steps", "results"}

// normalizeResult reshapes whatever the transport produced into the
// canonical result. It is total: unrecognized shapes degrade to a
// mostly-empty but well-typed result, never an error. workflowID and
// elapsed backfill fields the server omitted.
func normalizeResult(workflowID string, elapsed time.Duration, raw map[string]any) *types.CanonicalResult {
	body := unwrapData(raw)

	result := &types.CanonicalResult{
		WorkflowID:   asString(body["workflow_id"]),
		Success:      asBool(body["success"]),
		ErrorMessage: firstString(body, "error_message", "error"),
		StepResults:  make(map[string]types.StepResult),
	}
	if result.WorkflowID == "" {
		result.WorkflowID = workflowID
	}

	result.TotalExecutionTimeMS = asFloat(body["total_execution_time_ms"])
	if result.TotalExecutionTimeMS == 0 {
		result.TotalExecutionTimeMS = float64(elapsed.Milliseconds())
	}

	order := extractSteps(body, result)

	result.FinalOutput = asString(body["final_output"])
	if result.FinalOutput == "" {
		// Last successful step's output is the best remaining candidate.
		for i := len(order) - 1; i >= 0; i-- {
			if sr, ok := result.StepResults[order[i]]; ok && sr.Success {
				result.FinalOutput = sr.Output
				break
			}
		}
	}

	return result
}

// extractSteps locates the step collection, fills result.StepResults,
// and returns the step ids in execution order as far as the envelope
// reveals it.
func extractSteps(body map[string]any, result *types.CanonicalResult) []string {
	times := asMap(body["step_execution_times"])

	var collection any
	for _, key := range stepCollectionKeys {
		if v, ok := body[key]; ok && v != nil {
			collection = v
			break
		}
	}

	var order []string
	record := func(id string, sr types.StepResult) {
		if id == "" {
			return
		}
		if sr.ExecutionTimeMS == 0 && times != nil {
			sr.ExecutionTimeMS = asFloat(times[id])
		}
		result.StepResults[id] = sr
		order = append(order, id)
	}

	switch coll := collection.(type) {
	case map[string]any:
		// Map form carries no order of its own; recover it from an
		// executed_steps id list when present, else sort for determinism.
		keys := executedOrder(body, coll)
		for _, id := range keys {
			record(id, stepResultOf(coll[id], result.Success))
		}
	case []any:
		for _, entry := range coll {
			switch e := entry.(type) {
			case map[string]any:
				record(firstString(e, "step_id", "id", "name"), stepResultOf(e, result.Success))
			case string:
				// A bare id list says the step ran but nothing more.
				record(e, types.StepResult{Success: result.Success})
			}
		}
	}
	return order
}

// stepResultOf extracts one step outcome from an arbitrary entry shape.
func stepResultOf(v any, defaultSuccess bool) types.StepResult {
	m, ok := v.(map[string]any)
	if !ok {
		return types.StepResult{Success: defaultSuccess}
	}

	sr := types.StepResult{
		Output:          firstString(m, "output", "response", "result", "text"),
		Error:           firstString(m, "error", "error_message"),
		ExecutionTimeMS: asFloat(m["execution_time_ms"]),
	}
	if s, ok := m["success"]; ok {
		sr.Success = asBool(s)
	} else {
		sr.Success = sr.Error == ""
	}

	// Some servers nest step output under result_data.
	if sr.Output == "" {
		if rd := asMap(m["result_data"]); rd != nil {
			sr.Output = firstString(rd, "text", "output", "response", "result")
		}
	}
	return sr
}

// executedOrder returns every step id of a map-form collection in
// execution order as far as the envelope reveals it: ids named by an
// executed_steps list come first in list order, any remaining keys
// follow sorted. The list orders the collection but never shrinks it; a
// step missing from executed_steps (skipped, failed early) keeps its
// entry.
func executedOrder(body, coll map[string]any) []string {
	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	listed, ok := body["executed_steps"].([]any)
	if !ok {
		return keys
	}

	seen := make(map[string]struct{}, len(coll))
	var order []string
	for _, v := range listed {
		id := asString(v)
		if id == "" {
			continue
		}
		if _, present := coll[id]; !present {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	if len(order) == 0 {
		return keys
	}
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			order = append(order, k)
		}
	}
	return order
}

// unwrapData removes one level of data envelope if present.
func unwrapData(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	if inner, ok := raw["data"].(map[string]any); ok {
		return inner
	}
	return raw
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}

func asFloat(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	default:
		return 0
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// firstString returns the first non-empty string among the given keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}
