package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/types"
	"github.com/kolosal-ai/seqflow/workflow"
)

// stepPayload is the server's wire format for one step, with the
// resolved agent id substituted for the model's agent name.
type stepPayload struct {
	StepID            string         `json:"step_id"`
	StepName          string         `json:"step_name"`
	Description       string         `json:"description"`
	AgentID           string         `json:"agent_id"`
	FunctionName      string         `json:"function_name"`
	TimeoutSeconds    int            `json:"timeout_seconds"`
	MaxRetries        int            `json:"max_retries"`
	ContinueOnFailure bool           `json:"continue_on_failure"`
	Parameters        map[string]any `json:"parameters"`
}

// workflowPayload is the server's wire format for a workflow definition.
type workflowPayload struct {
	WorkflowID              string         `json:"workflow_id"`
	WorkflowName            string         `json:"workflow_name"`
	Description             string         `json:"description"`
	StopOnFailure           bool           `json:"stop_on_failure"`
	MaxExecutionTimeSeconds int            `json:"max_execution_time_seconds"`
	GlobalContext           map[string]any `json:"global_context"`
	Steps                   []stepPayload  `json:"steps"`
}

// buildStepPayload converts a model step into wire format. Explicit step
// parameters win over the prompt-derived base parameters.
func buildStepPayload(s workflow.Step, agentID string) stepPayload {
	params := map[string]any{
		"prompt":      s.Prompt,
		"model":       "default",
		"max_tokens":  s.MaxTokens,
		"temperature": s.Temperature,
	}
	for k, v := range s.Parameters {
		params[k] = v
	}

	return stepPayload{
		StepID:            s.StepID,
		StepName:          titleFromID(s.StepID),
		Description:       fmt.Sprintf("Execute %s using %s", s.FunctionName, s.AgentName),
		AgentID:           agentID,
		FunctionName:      s.FunctionName,
		TimeoutSeconds:    s.TimeoutSeconds,
		MaxRetries:        s.MaxRetries,
		ContinueOnFailure: s.ContinueOnFailure,
		Parameters:        params,
	}
}

func buildWorkflowPayload(wf *workflow.Workflow, ids map[string]string) workflowPayload {
	steps := make([]stepPayload, 0, len(wf.Steps))
	for _, s := range wf.Steps {
		steps = append(steps, buildStepPayload(s, ids[s.AgentName]))
	}
	gctx := wf.GlobalContext
	if gctx == nil {
		gctx = map[string]any{}
	}
	return workflowPayload{
		WorkflowID:              wf.WorkflowID,
		WorkflowName:            wf.WorkflowName,
		Description:             wf.Description,
		StopOnFailure:           wf.StopOnFailure,
		MaxExecutionTimeSeconds: wf.MaxExecutionTimeSeconds,
		GlobalContext:           gctx,
		Steps:                   steps,
	}
}

// titleFromID turns a step id like "research_step" into "Research Step".
func titleFromID(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// RegisterWorkflow idempotently publishes the workflow definition. The
// backing store only supports create-or-409, so the registrar is a small
// state machine:
//
//  1. Resolve every agent name; an unresolved name aborts before any
//     registration call reaches the network.
//  2. POST the definition; 201 is success.
//  3. On 409, DELETE the existing definition (200/204/404 all mean
//     "now absent") and POST exactly once more.
//  4. Anything else is a hard REGISTRATION_FAILED; a broken store is not
//     retried a third time.
//
// When VerifyRegistration is enabled, a GET after a reported success
// must find the workflow; a verification 404 fails the registration even
// though the POST claimed success.
func (c *Client) RegisterWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	ctx, span := c.tracer.Start(ctx, "seqflow.register")
	defer span.End()

	if err := wf.Validate(); err != nil {
		return err
	}

	ids, err := c.resolver.ResolveAll(ctx, wf.AgentNames())
	if err != nil {
		c.metrics.Registration("unresolved")
		return types.NewError(types.ErrUnresolvedAgent,
			fmt.Sprintf("workflow %q references unresolvable agents", wf.WorkflowID)).
			WithWorkflowID(wf.WorkflowID).WithCause(err)
	}

	payload := buildWorkflowPayload(wf, ids)

	status, err := c.postWorkflow(ctx, payload)
	if err != nil {
		c.metrics.Registration("error")
		return err
	}

	switch status {
	case http.StatusCreated:
		// fallthrough to verification below

	case http.StatusConflict:
		c.logger.Info("workflow already registered, replacing definition",
			zap.String("workflow_id", wf.WorkflowID))
		if err := c.DeleteWorkflow(ctx, wf.WorkflowID); err != nil {
			c.metrics.Registration("error")
			return types.NewError(types.ErrRegistrationFailed,
				"failed to delete stale workflow definition").
				WithWorkflowID(wf.WorkflowID).WithCause(err)
		}
		status, err = c.postWorkflow(ctx, payload)
		if err != nil {
			c.metrics.Registration("error")
			return err
		}
		if status != http.StatusCreated {
			c.metrics.Registration("error")
			return types.NewError(types.ErrRegistrationFailed,
				fmt.Sprintf("re-registration after cleanup failed with status %d", status)).
				WithWorkflowID(wf.WorkflowID).WithHTTPStatus(status)
		}

	default:
		c.metrics.Registration("error")
		return types.NewError(types.ErrRegistrationFailed,
			fmt.Sprintf("registration failed with status %d", status)).
			WithWorkflowID(wf.WorkflowID).WithHTTPStatus(status)
	}

	if c.cfg.VerifyRegistration {
		if err := c.verifyWorkflow(ctx, wf.WorkflowID); err != nil {
			c.metrics.Registration("error")
			return err
		}
	}

	c.metrics.Registration("ok")
	c.logger.Info("workflow registered", zap.String("workflow_id", wf.WorkflowID),
		zap.Int("steps", len(wf.Steps)))
	return nil
}

func (c *Client) postWorkflow(ctx context.Context, payload workflowPayload) (int, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/workflows", payload)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, types.NewError(types.ErrRegistrationFailed, "registration request failed").
			WithWorkflowID(payload.WorkflowID).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// DeleteWorkflow removes a workflow definition. The absence statuses
// 200, 204, and 404 all count as success.
func (c *Client) DeleteWorkflow(ctx context.Context, workflowID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/workflows/"+workflowID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewError(types.ErrServerUnavailable, "workflow delete failed").
			WithWorkflowID(workflowID).WithCause(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return types.NewError(types.ErrRegistrationFailed,
			fmt.Sprintf("workflow delete failed with status %d", resp.StatusCode)).
			WithWorkflowID(workflowID).WithHTTPStatus(resp.StatusCode)
	}
}

// verifyWorkflow tolerates eventually-consistent or buggy backends by
// confirming the definition is actually readable after registration.
func (c *Client) verifyWorkflow(ctx context.Context, workflowID string) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/workflows/"+workflowID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewError(types.ErrRegistrationFailed, "registration verification failed").
			WithWorkflowID(workflowID).WithCause(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return types.NewError(types.ErrRegistrationFailed,
			fmt.Sprintf("workflow not found after registration (status %d)", resp.StatusCode)).
			WithWorkflowID(workflowID).WithHTTPStatus(resp.StatusCode)
	}
	return nil
}
