package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolosal-ai/seqflow/testutil"
	"github.com/kolosal-ai/seqflow/types"
)

func TestExecuteSync(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.SyncResult = map[string]any{
		"data": map[string]any{
			"workflow_id":             "w1",
			"success":                 true,
			"total_execution_time_ms": 1234.5,
			"step_results": map[string]any{
				"s1": map[string]any{"success": true, "output": "draft", "execution_time_ms": 800.0},
				"s2": map[string]any{"success": true, "output": "final", "execution_time_ms": 400.0},
			},
			"executed_steps": []any{"s1", "s2"},
			"final_output":   "final",
		},
	}
	c := newTestClient(t, srv)

	result, err := c.ExecuteSync(context.Background(), "w1", map[string]any{"topic": "AI"})
	require.NoError(t, err)
	assert.Equal(t, "w1", result.WorkflowID)
	assert.True(t, result.Success)
	assert.Equal(t, 1234.5, result.TotalExecutionTimeMS)
	assert.Equal(t, "final", result.FinalOutput)
	require.Len(t, result.StepResults, 2)
	assert.Equal(t, "draft", result.StepResults["s1"].Output)
	assert.Equal(t, 400.0, result.StepResults["s2"].ExecutionTimeMS)
}

func TestExecuteSyncNilInputContext(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	c := newTestClient(t, srv)

	result, err := c.ExecuteSync(context.Background(), "w1", nil)
	require.NoError(t, err)
	assert.Equal(t, "w1", result.WorkflowID)
	assert.True(t, result.Success)
}

func TestExecuteSyncServerError(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.SyncStatus = http.StatusServiceUnavailable
	srv.SyncResult = map[string]any{"error": "engine not loaded"}
	c := newTestClient(t, srv)

	_, err := c.ExecuteSync(context.Background(), "w1", nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrExecutionFailed))

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
	assert.Contains(t, apiErr.Message, "engine not loaded")
}

func TestExecuteSyncConnectionFailure(t *testing.T) {
	srv := testutil.NewFakeServer()
	srv.Close()
	c := newTestClient(t, srv)

	_, err := c.ExecuteSync(context.Background(), "w1", nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrExecutionFailed))
	assert.True(t, types.IsRetryable(err))
}

func TestExecuteSyncBackfillsElapsedTime(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.SyncResult = map[string]any{
		"workflow_id":  "w1",
		"success":      true,
		"step_results": map[string]any{},
	}
	c := newTestClient(t, srv)

	result, err := c.ExecuteSync(context.Background(), "w1", nil)
	require.NoError(t, err)
	// No server-reported total, so the client's own wall clock fills in.
	assert.GreaterOrEqual(t, result.TotalExecutionTimeMS, 0.0)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
