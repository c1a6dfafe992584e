package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/types"
)

// executeBody is the request payload of the execute endpoint.
type executeBody struct {
	InputContext map[string]any `json:"input_context,omitempty"`
}

// ExecuteSync runs a registered workflow with one blocking POST and
// normalizes the response. Any non-200 status is terminal for this
// call: retry policy belongs to the caller or to the server-side
// per-step retry budget.
func (c *Client) ExecuteSync(ctx context.Context, workflowID string, inputContext map[string]any) (*types.CanonicalResult, error) {
	ctx, span := c.tracer.Start(ctx, "seqflow.execute_sync")
	defer span.End()

	start := time.Now()
	result, err := c.executeSyncOnce(ctx, workflowID, inputContext, start)
	c.metrics.Execution("sync", err == nil, time.Since(start))
	return result, err
}

func (c *Client) executeSyncOnce(ctx context.Context, workflowID string, inputContext map[string]any, start time.Time) (*types.CanonicalResult, error) {
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}

	var body any
	if inputContext != nil {
		body = executeBody{InputContext: inputContext}
	} else {
		body = struct{}{}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/workflows/"+workflowID+"/execute", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrExecutionFailed, "synchronous execution request failed").
			WithWorkflowID(workflowID).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		c.logger.Warn("synchronous execution rejected",
			zap.String("workflow_id", workflowID),
			zap.Int("status", resp.StatusCode))
		return nil, types.NewError(types.ErrExecutionFailed,
			fmt.Sprintf("execution failed with status %d: %s", resp.StatusCode, truncate(string(payload), 200))).
			WithWorkflowID(workflowID).WithHTTPStatus(resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewError(types.ErrExecutionFailed, "failed to decode execution response").
			WithWorkflowID(workflowID).WithCause(err)
	}

	return normalizeResult(workflowID, time.Since(start), raw), nil
}

// waitLimiter blocks until the optional client-side rate limiter admits
// another execute call.
func (c *Client) waitLimiter(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
