package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeMapForm(t *testing.T) {
	raw := map[string]any{
		"workflow_id":             "w1",
		"success":                 true,
		"total_execution_time_ms": 500.0,
		"step_results": map[string]any{
			"s2": map[string]any{"success": true, "output": "second"},
			"s1": map[string]any{"success": true, "output": "first"},
		},
		"executed_steps": []any{"s1", "s2"},
	}

	result := normalizeResult("fallback-id", time.Second, raw)
	assert.Equal(t, "w1", result.WorkflowID)
	assert.Equal(t, 500.0, result.TotalExecutionTimeMS)
	// No explicit final output: the last successful step's output wins,
	// in executed order.
	assert.Equal(t, "second", result.FinalOutput)
	assert.ElementsMatch(t, []string{"s1", "s2"}, result.StepIDs())
}

func TestNormalizePartialExecutedStepsKeepsAllEntries(t *testing.T) {
	raw := map[string]any{
		"success": false,
		"step_results": map[string]any{
			"s1": map[string]any{"success": true, "output": "ok"},
			"s2": map[string]any{"error": "boom"},
		},
		// The server only lists the steps that ran to completion; the
		// failed one must not vanish from the normalized result.
		"executed_steps": []any{"s1"},
	}

	result := normalizeResult("w1", 0, raw)
	require.Len(t, result.StepResults, 2)
	assert.Equal(t, "ok", result.StepResults["s1"].Output)
	assert.False(t, result.StepResults["s2"].Success)
	assert.Equal(t, "boom", result.StepResults["s2"].Error)
	// Listed ids still come first, so the last successful ordered step
	// stays the final output.
	assert.Equal(t, "ok", result.FinalOutput)
}

func TestNormalizeMapFormSortedWhenUnordered(t *testing.T) {
	raw := map[string]any{
		"success": true,
		"step_results": map[string]any{
			"b_step": map[string]any{"success": true, "output": "bee"},
			"a_step": map[string]any{"success": true, "output": "ay"},
		},
	}

	result := normalizeResult("w1", 0, raw)
	// Without an executed order, keys sort for determinism.
	assert.Equal(t, "bee", result.FinalOutput)
}

func TestNormalizeListForm(t *testing.T) {
	raw := map[string]any{
		"success": true,
		"steps": []any{
			map[string]any{"step_id": "s1", "success": true, "response": "one"},
			map[string]any{"step_id": "s2", "success": false, "error": "boom"},
		},
	}

	result := normalizeResult("w1", 0, raw)
	require.Len(t, result.StepResults, 2)
	assert.Equal(t, "one", result.StepResults["s1"].Output)
	assert.False(t, result.StepResults["s2"].Success)
	assert.Equal(t, "boom", result.StepResults["s2"].Error)
	// Final output skips the failed step.
	assert.Equal(t, "one", result.FinalOutput)
}

func TestNormalizeBareIDList(t *testing.T) {
	raw := map[string]any{
		"success":        true,
		"executed_steps": []any{"s1", "s2"},
	}

	result := normalizeResult("w1", 0, raw)
	require.Len(t, result.StepResults, 2)
	assert.True(t, result.StepResults["s1"].Success)
	assert.Empty(t, result.StepResults["s1"].Output)
}

func TestNormalizeDataEnvelope(t *testing.T) {
	raw := map[string]any{
		"data": map[string]any{
			"workflow_id":  "w1",
			"success":      true,
			"final_output": "wrapped",
			"step_results": map[string]any{},
		},
	}

	result := normalizeResult("other", 0, raw)
	assert.Equal(t, "w1", result.WorkflowID)
	assert.Equal(t, "wrapped", result.FinalOutput)
}

func TestNormalizeBackfills(t *testing.T) {
	result := normalizeResult("w1", 1500*time.Millisecond, map[string]any{"success": true})
	assert.Equal(t, "w1", result.WorkflowID)
	assert.Equal(t, 1500.0, result.TotalExecutionTimeMS)
	assert.NotNil(t, result.StepResults)
	assert.Empty(t, result.StepResults)
}

func TestNormalizeStepExecutionTimes(t *testing.T) {
	raw := map[string]any{
		"success": true,
		"step_results": map[string]any{
			"s1": map[string]any{"success": true, "output": "x"},
		},
		"step_execution_times": map[string]any{"s1": 321.0},
	}

	result := normalizeResult("w1", 0, raw)
	assert.Equal(t, 321.0, result.StepResults["s1"].ExecutionTimeMS)
}

func TestNormalizeNestedResultData(t *testing.T) {
	raw := map[string]any{
		"success": true,
		"step_results": map[string]any{
			"s1": map[string]any{
				"success":     true,
				"result_data": map[string]any{"text": "nested"},
			},
		},
	}

	result := normalizeResult("w1", 0, raw)
	assert.Equal(t, "nested", result.StepResults["s1"].Output)
}

func TestNormalizeSuccessDefaults(t *testing.T) {
	raw := map[string]any{
		"success": true,
		"step_results": map[string]any{
			// No success field, no error: counts as successful.
			"clean": map[string]any{"output": "x"},
			// No success field but an error message: failed.
			"dirty": map[string]any{"error_message": "bad"},
			// String-typed success flag.
			"stringy": map[string]any{"success": "true", "output": "y"},
		},
	}

	result := normalizeResult("w1", 0, raw)
	assert.True(t, result.StepResults["clean"].Success)
	assert.False(t, result.StepResults["dirty"].Success)
	assert.True(t, result.StepResults["stringy"].Success)
}

func TestNormalizeErrorMessage(t *testing.T) {
	result := normalizeResult("w1", 0, map[string]any{
		"success": false,
		"error":   "pipeline aborted",
	})
	assert.False(t, result.Success)
	assert.Equal(t, "pipeline aborted", result.ErrorMessage)
}

// genJSONValue generates arbitrary decoded-JSON shapes up to a small
// depth, matching what json.Unmarshal into any can produce.
func genJSONValue(depth int) *rapid.Generator[any] {
	return rapid.Custom(func(t *rapid.T) any {
		kinds := 5
		if depth <= 0 {
			kinds = 3
		}
		switch rapid.IntRange(0, kinds).Draw(t, "kind") {
		case 0:
			return rapid.String().Draw(t, "string")
		case 1:
			return rapid.Float64().Draw(t, "number")
		case 2:
			return rapid.Bool().Draw(t, "bool")
		case 3:
			return nil
		case 4:
			n := rapid.IntRange(0, 4).Draw(t, "listLen")
			list := make([]any, n)
			for i := range list {
				list[i] = genJSONValue(depth - 1).Draw(t, "listItem")
			}
			return list
		default:
			return genJSONDocument(depth - 1).Draw(t, "nested")
		}
	})
}

// genJSONDocument generates an arbitrary JSON object, keys included
// from the keys the normalizer probes so they are actually exercised.
func genJSONDocument(depth int) *rapid.Generator[map[string]any] {
	return rapid.Custom(func(t *rapid.T) map[string]any {
		n := rapid.IntRange(0, 6).Draw(t, "keys")
		doc := make(map[string]any, n)
		for i := 0; i < n; i++ {
			var key string
			if rapid.Bool().Draw(t, "probedKey") {
				key = rapid.SampledFrom([]string{
					"data", "workflow_id", "success", "final_output",
					"step_results", "steps", "executed_steps", "results",
					"step_execution_times", "error", "error_message",
				}).Draw(t, "known")
			} else {
				key = rapid.StringMatching(`[a-z_]{1,12}`).Draw(t, "fresh")
			}
			doc[key] = genJSONValue(depth).Draw(t, "value")
		}
		return doc
	})
}

// The normalizer is total: any decoded JSON document yields a
// well-typed result, never a panic or a nil.
func TestNormalizeIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := genJSONDocument(3).Draw(t, "raw")

		result := normalizeResult("w1", time.Second, raw)
		require.NotNil(t, result)
		assert.NotNil(t, result.StepResults)
		if asString(unwrapData(raw)["workflow_id"]) == "" {
			assert.Equal(t, "w1", result.WorkflowID)
		}
	})
}
