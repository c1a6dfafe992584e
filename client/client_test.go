package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/testutil"
	"github.com/kolosal-ai/seqflow/types"
)

func TestHealth(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	c := newTestClient(t, srv)

	assert.True(t, c.Health(context.Background()))
}

func TestHealthDown(t *testing.T) {
	srv := testutil.NewFakeServer()
	srv.Close()
	c := newTestClient(t, srv)

	assert.False(t, c.Health(context.Background()))
}

func TestEndpointJoinsBasePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://host:9090/"
	cfg.BasePath = "/api/v1/"
	c := New(cfg, nil)

	assert.Equal(t, "http://host:9090/api/v1/workflows", c.endpoint("/workflows"))
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	cfg.Headers = map[string]string{"Authorization": "Bearer tok"}
	c := New(cfg, zap.NewNop())

	c.Health(context.Background())

	require.NotNil(t, got)
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	// Every request carries a fresh correlation id.
	assert.NotEmpty(t, got.Get("X-Request-ID"))
}

func TestListWorkflows(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"workflow_id":"w1","workflow_name":"First","total_steps":3}]}`))
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	c := New(cfg, nil)

	summaries, err := c.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "w1", summaries[0].WorkflowID)
	assert.Equal(t, 3, summaries[0].TotalSteps)
}

func TestSetupEngineAlreadyLoaded(t *testing.T) {
	var posted bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	c := New(cfg, nil)

	require.NoError(t, c.SetupEngine(context.Background(), EngineConfig{EngineID: "default"}))
	assert.False(t, posted)
}

func TestSetupEngineCreates(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	c := New(cfg, nil)

	require.NoError(t, c.SetupEngine(context.Background(), EngineConfig{
		EngineID:  "default",
		ModelPath: "/models/small.gguf",
	}))
}

func TestSetupEngineConflictBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"engine_id_exists"}`))
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	c := New(cfg, nil)

	// An existing engine is the desired state, not a failure.
	require.NoError(t, c.SetupEngine(context.Background(), EngineConfig{EngineID: "default"}))
}

func TestSetupEngineHardFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = backend.URL
	c := New(cfg, nil)

	err := c.SetupEngine(context.Background(), EngineConfig{EngineID: "default"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrServerUnavailable))
}

func TestRunWorkflowRegistersThenExecutes(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.Agents = []types.AgentInfo{{ID: "abc-123", Name: "writer"}}
	srv.SyncResult = map[string]any{
		"data": map[string]any{"workflow_id": "w1", "success": true, "final_output": "done"},
	}
	c := newTestClient(t, srv)

	result, err := c.RunWorkflow(context.Background(), testWorkflow(), RunOptions{
		InputContext: map[string]any{"topic": "AI"},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", result.FinalOutput)

	calls := srv.Calls()
	// Registration strictly precedes execution.
	var registerIdx, executeIdx int
	for i, call := range calls {
		if call == "POST /workflows" {
			registerIdx = i
		}
		if strings.HasSuffix(call, "/execute") {
			executeIdx = i
		}
	}
	assert.Less(t, registerIdx, executeIdx)
}

func TestRunWorkflowRegistrationFailureStopsRun(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.Agents = []types.AgentInfo{{ID: "abc-123", Name: "writer"}}
	srv.RejectRegister = http.StatusInternalServerError
	c := newTestClient(t, srv)

	_, err := c.RunWorkflow(context.Background(), testWorkflow(), RunOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRegistrationFailed))
	assert.Equal(t, 0, srv.CallCount("POST", "/workflows/w1/execute"))
}

func TestStreamingAndSyncProduceEquivalentResults(t *testing.T) {
	terminal := map[string]any{
		"workflow_id":             "w1",
		"success":                 true,
		"total_execution_time_ms": 750.0,
		"step_results": map[string]any{
			"s1": map[string]any{"success": true, "output": "one", "execution_time_ms": 300.0},
			"s2": map[string]any{"success": true, "output": "two", "execution_time_ms": 450.0},
		},
		"executed_steps": []any{"s1", "s2"},
		"final_output":   "two",
	}
	frame, err := json.Marshal(map[string]any{"type": "workflow_complete", "result": terminal})
	require.NoError(t, err)

	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.SyncResult = map[string]any{"data": terminal}
	srv.StreamFrames = []string{"data: " + string(frame), "data: [DONE]"}
	c := newTestClient(t, srv)

	syncResult, err := c.ExecuteSync(context.Background(), "w1", nil)
	require.NoError(t, err)
	streamResult, err := c.ExecuteStreaming(context.Background(), "w1", nil, nil)
	require.NoError(t, err)

	// The caller must not be able to tell which strategy ran.
	assert.Equal(t, syncResult, streamResult)
	assert.ElementsMatch(t, syncResult.StepIDs(), streamResult.StepIDs())
}

func TestRunWorkflowStreaming(t *testing.T) {
	srv := testutil.NewFakeServer()
	defer srv.Close()
	srv.Agents = []types.AgentInfo{{ID: "abc-123", Name: "writer"}}
	srv.StreamFrames = []string{
		`data: {"type":"step_start","step_id":"s1"}`,
		`data: {"type":"llm_token","token":"hi"}`,
		`data: {"type":"step_complete","step_id":"s1","success":true}`,
		`data: {"type":"workflow_complete","result":{"success":true,"final_output":"hi"}}`,
	}
	c := newTestClient(t, srv)
	rec := &eventRecorder{}

	result, err := c.RunWorkflow(context.Background(), testWorkflow(), RunOptions{
		Streaming: true,
		Handler:   rec.handler(),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", result.FinalOutput)
	assert.Equal(t, "hi", rec.tokens())
}
