package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/internal/metrics"
	"github.com/kolosal-ai/seqflow/types"
)

// errStreamIncomplete signals that the stream closed without a terminal
// result. It never reaches callers; the fallback coordinator absorbs it.
var errStreamIncomplete = errors.New("stream ended without terminal result")

// streamState is the decoder position within the SSE event flow.
type streamState int

const (
	awaitingStep streamState = iota
	inStep
	streamDone
)

// ExecuteStreaming runs a registered workflow over the live-progress
// transport. Incremental events are delivered to handler as they are
// decoded; the terminal result is normalized like the synchronous path.
//
// When the stream fails to yield a terminal result (connection drop,
// cancellation, or a clean close without a completion event), execution
// falls through the bounded fallback ladder: one result/status poll,
// then at most one synchronous attempt.
func (c *Client) ExecuteStreaming(ctx context.Context, workflowID string, inputContext map[string]any, handler StreamHandler) (*types.CanonicalResult, error) {
	ctx, span := c.tracer.Start(ctx, "seqflow.execute_streaming")
	defer span.End()
	return c.executeWithFallback(ctx, workflowID, inputContext, handler)
}

// streamOnce performs a single streaming attempt. It returns
// errStreamIncomplete when the stream ends in any state without a
// captured terminal result.
func (c *Client) streamOnce(ctx context.Context, workflowID string, inputContext map[string]any, handler StreamHandler) (*types.CanonicalResult, error) {
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

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
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrExecutionFailed, "streaming execution request failed").
			WithWorkflowID(workflowID).WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, types.NewError(types.ErrExecutionFailed,
			fmt.Sprintf("streaming execution failed with status %d", resp.StatusCode)).
			WithWorkflowID(workflowID).WithHTTPStatus(resp.StatusCode)
	}

	// A server may silently not stream. A non-event-stream body is one
	// complete JSON document and skips the SSE machine entirely; this is
	// a transport degradation, not an error.
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		c.metrics.TransportDegraded()
		c.logger.Debug("server degraded stream to single document",
			zap.String("workflow_id", workflowID),
			zap.String("content_type", ct),
			zap.String("signal", string(types.ErrTransportDegraded)))
		var raw map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, types.NewError(types.ErrExecutionFailed, "failed to decode degraded stream body").
				WithWorkflowID(workflowID).WithCause(err)
		}
		result := normalizeResult(workflowID, time.Since(start), raw)
		c.metrics.Execution("degraded", true, time.Since(start))
		return result, nil
	}

	dec := &streamDecoder{
		workflowID: workflowID,
		handler:    handler,
		logger:     c.logger,
		metrics:    c.metrics,
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if dec.consumeLine(strings.TrimSpace(line)) {
				break
			}
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Debug("stream read interrupted",
					zap.String("workflow_id", workflowID), zap.Error(err))
			}
			break
		}
	}

	if dec.terminal == nil {
		// Partially decoded step buffers are discarded; the fallback
		// coordinator owns recovery from here.
		c.metrics.Execution("stream", false, time.Since(start))
		return nil, errStreamIncomplete
	}

	result := normalizeResult(workflowID, time.Since(start), dec.terminal)
	c.metrics.Execution("stream", true, time.Since(start))
	return result, nil
}

// streamDecoder is the explicit state machine over SSE lines.
type streamDecoder struct {
	workflowID string
	handler    StreamHandler
	logger     *zap.Logger
	metrics    *metrics.Collector

	state       streamState
	currentStep string
	buf         strings.Builder
	terminal    map[string]any
}

// consumeLine classifies one trimmed line and advances the machine.
// It returns true when the stream is finished.
func (d *streamDecoder) consumeLine(line string) bool {
	switch {
	case line == "":
		// Blank frame separator.
		return false
	case strings.HasPrefix(line, "event:"):
		// Informational; the payload on the data line is authoritative.
		return false
	case strings.HasPrefix(line, "data:"):
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return true
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Raw text token for the active step; never dropped.
			d.appendToken(data)
			return false
		}
		return d.consumeEvent(event)
	default:
		// Servers occasionally emit bare text between frames; it belongs
		// to the active step's output.
		d.appendToken(line)
		return false
	}
}

func (d *streamDecoder) consumeEvent(event map[string]any) bool {
	switch asString(event["type"]) {
	case "step_start":
		d.state = inStep
		d.currentStep = asString(event["step_id"])
		d.buf.Reset()
		d.emit(StreamEvent{
			Type:      EventStepStart,
			StepID:    d.currentStep,
			StepName:  asString(event["step_name"]),
			AgentName: asString(event["agent_name"]),
		})

	case "llm_token", "token":
		d.appendToken(firstString(event, "token", "content"))

	case "llm_output", "output":
		d.appendToken(firstString(event, "output", "content"))

	case "step_complete":
		stepID := asString(event["step_id"])
		if stepID == "" {
			stepID = d.currentStep
		}
		d.emit(StreamEvent{
			Type:    EventStepComplete,
			StepID:  stepID,
			Success: asBool(event["success"]),
			Err:     firstString(event, "error", "error_message"),
		})
		d.state = awaitingStep
		d.currentStep = ""
		d.buf.Reset()

	case "workflow_complete":
		if result, ok := event["result"].(map[string]any); ok {
			d.terminal = result
		} else {
			d.terminal = event
		}
		d.state = streamDone
		d.emit(StreamEvent{Type: EventWorkflowComplete, Success: asBool(d.terminal["success"])})

	case "error":
		// Recorded but not terminal: a workflow_complete may still arrive.
		msg := firstString(event, "message", "error")
		d.logger.Warn("stream reported error",
			zap.String("workflow_id", d.workflowID), zap.String("message", msg))
		d.emit(StreamEvent{Type: EventError, StepID: d.currentStep, Err: msg})

	default:
		// Any object carrying a result shape is a terminal candidate.
		if _, ok := event["final_output"]; ok {
			d.terminal = event
			d.state = streamDone
			return false
		}
		if _, ok := event["step_results"]; ok {
			d.terminal = event
			d.state = streamDone
		}
	}
	return false
}

// appendToken flushes one decoded token to the handler and, when a step
// is active, its output buffer.
func (d *streamDecoder) appendToken(token string) {
	if token == "" {
		return
	}
	if d.state == inStep {
		d.buf.WriteString(token)
	}
	d.emit(StreamEvent{Type: EventToken, StepID: d.currentStep, Token: token})
}

func (d *streamDecoder) emit(ev StreamEvent) {
	d.metrics.StreamEvent(string(ev.Type))
	if d.handler != nil {
		d.handler(ev)
	}
}
