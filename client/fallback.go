package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/types"
)

// executeWithFallback is the fallback coordinator: an ordered, single
// pass through the execution strategies, never cyclic.
//
//  1. One streaming attempt. A terminal result wins.
//  2. One poll of the result endpoint (with the status endpoint as a
//     secondary probe) for an outcome the server already computed.
//  3. One synchronous attempt.
//
// The remote "execute" semantic is invoked at most twice in total (once
// streaming, once sync), bounding duplicated side effects on a server
// that is not idempotent per call.
func (c *Client) executeWithFallback(ctx context.Context, workflowID string, inputContext map[string]any, handler StreamHandler) (*types.CanonicalResult, error) {
	result, streamErr := c.streamOnce(ctx, workflowID, inputContext, handler)
	if result != nil {
		return result, nil
	}
	if errors.Is(streamErr, errStreamIncomplete) {
		c.logger.Info("stream yielded no terminal result, falling back",
			zap.String("workflow_id", workflowID))
	} else {
		c.logger.Warn("streaming attempt failed, falling back",
			zap.String("workflow_id", workflowID), zap.Error(streamErr))
	}

	// Cancellation short-circuit: a caller that cancelled mid-stream has
	// cancelled the whole run, so the poll and sync rungs are skipped
	// rather than attempted on a dead context.
	if ctx.Err() != nil {
		return nil, types.NewError(types.ErrExecutionFailed, "execution cancelled").
			WithWorkflowID(workflowID).WithCause(ctx.Err())
	}

	if result := c.pollResult(ctx, workflowID); result != nil {
		c.metrics.Fallback("poll")
		return result, nil
	}

	c.metrics.Fallback("sync")
	result, syncErr := c.executeSyncOnce(ctx, workflowID, inputContext, time.Now())
	if syncErr == nil {
		return result, nil
	}

	return nil, types.NewError(types.ErrExecutionFailed,
		"all execution strategies exhausted").
		WithWorkflowID(workflowID).
		WithCause(errors.Join(streamErr, syncErr))
}

// pollResult asks the server for an already-computed outcome. It checks
// the result endpoint first and falls back to the status endpoint when
// the result is not directly readable. A nil return means no completed
// outcome was found; poll failures are soft by design.
func (c *Client) pollResult(ctx context.Context, workflowID string) *types.CanonicalResult {
	start := time.Now()

	if raw := c.getJSON(ctx, "/workflows/"+workflowID+"/result"); raw != nil {
		return normalizeResult(workflowID, time.Since(start), raw)
	}

	raw := c.getJSON(ctx, "/workflows/"+workflowID+"/status")
	if raw == nil {
		return nil
	}
	inner := unwrapData(raw)
	switch asString(inner["status"]) {
	case "completed", "success", "succeeded":
		return normalizeResult(workflowID, time.Since(start), raw)
	}
	// A status body that already carries results counts as completion.
	if _, ok := inner["step_results"]; ok {
		return normalizeResult(workflowID, time.Since(start), raw)
	}
	return nil
}

// getJSON fetches one JSON document, returning nil on any failure.
func (c *Client) getJSON(ctx context.Context, path string) map[string]any {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("poll request failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil
	}
	return raw
}
