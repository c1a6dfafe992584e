package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/kolosal-ai/seqflow/types"
)

// FakeServer is an in-process stand-in for the remote workflow service.
// It keeps a real create-or-409 workflow store and lets tests script the
// execute, status, and result endpoints.
type FakeServer struct {
	mu sync.Mutex

	// Agents is the directory served by GET /agents.
	Agents []types.AgentInfo
	// WrapDirectory serves the directory inside a data envelope.
	WrapDirectory bool

	// DeleteStatus overrides the DELETE response status (default 204).
	DeleteStatus int
	// RejectRegister forces POST /workflows to the given status when
	// non-zero, regardless of store state.
	RejectRegister int
	// VerifyMissing makes GET /workflows/{id} answer 404 even for
	// registered workflows, to simulate a buggy backend.
	VerifyMissing bool

	// SyncResult is returned by the execute endpoint for JSON callers.
	// Nil yields a minimal successful envelope.
	SyncResult any
	// SyncStatus overrides the execute response status (default 200).
	SyncStatus int
	// StreamFrames are written verbatim, one per line, to SSE callers.
	// Empty frames write a blank separator line.
	StreamFrames []string
	// StreamAsJSON answers SSE callers with a plain JSON body instead
	// of an event stream (the silent downgrade case).
	StreamAsJSON bool
	// ResultBody and StatusBody script the poll endpoints; nil means 404.
	ResultBody any
	StatusBody any

	workflows      map[string]json.RawMessage
	lastRegistered map[string]any
	calls          []string

	server *httptest.Server
}

// NewFakeServer starts the fake. Callers must Close it.
func NewFakeServer() *FakeServer {
	f := &FakeServer{
		workflows: make(map[string]json.RawMessage),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// URL returns the server's base URL.
func (f *FakeServer) URL() string { return f.server.URL }

// Close shuts the server down.
func (f *FakeServer) Close() { f.server.Close() }

// Calls returns every request seen as "METHOD /path".
func (f *FakeServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts requests matching the method and path prefix.
func (f *FakeServer) CallCount(method, pathPrefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, method+" "+pathPrefix) {
			n++
		}
	}
	return n
}

// LastRegistered returns the most recent registration payload.
func (f *FakeServer) LastRegistered() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRegistered
}

// Register seeds a workflow into the store so the next POST conflicts.
func (f *FakeServer) Register(workflowID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflows[workflowID] = json.RawMessage(`{}`)
}

func (f *FakeServer) record(r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
}

func (f *FakeServer) handle(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	path := r.URL.Path

	switch {
	case path == "/health":
		w.WriteHeader(http.StatusOK)

	case path == "/agents" && r.Method == http.MethodGet:
		f.writeDirectory(w)

	case path == "/workflows" && r.Method == http.MethodPost:
		f.handleRegister(w, r)

	case strings.HasSuffix(path, "/execute") && r.Method == http.MethodPost:
		workflowID := strings.TrimSuffix(strings.TrimPrefix(path, "/workflows/"), "/execute")
		f.handleExecute(w, r, workflowID)

	case strings.HasSuffix(path, "/result") && r.Method == http.MethodGet:
		writeOptional(w, f.ResultBody)

	case strings.HasSuffix(path, "/status") && r.Method == http.MethodGet:
		writeOptional(w, f.StatusBody)

	case strings.HasPrefix(path, "/workflows/") && r.Method == http.MethodDelete:
		f.handleDelete(w, strings.TrimPrefix(path, "/workflows/"))

	case strings.HasPrefix(path, "/workflows/") && r.Method == http.MethodGet:
		f.handleGet(w, strings.TrimPrefix(path, "/workflows/"))

	default:
		http.NotFound(w, r)
	}
}

func (f *FakeServer) writeDirectory(w http.ResponseWriter) {
	f.mu.Lock()
	agents := append([]types.AgentInfo(nil), f.Agents...)
	wrap := f.WrapDirectory
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if wrap {
		json.NewEncoder(w).Encode(map[string]any{"data": agents})
		return
	}
	json.NewEncoder(w).Encode(agents)
}

func (f *FakeServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	id, _ := payload["workflow_id"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRegistered = payload

	if f.RejectRegister != 0 {
		w.WriteHeader(f.RejectRegister)
		return
	}
	if _, exists := f.workflows[id]; exists {
		w.WriteHeader(http.StatusConflict)
		return
	}
	raw, _ := json.Marshal(payload)
	f.workflows[id] = raw
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeServer) handleDelete(w http.ResponseWriter, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteStatus != 0 {
		delete(f.workflows, id)
		w.WriteHeader(f.DeleteStatus)
		return
	}
	if _, exists := f.workflows[id]; !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(f.workflows, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeServer) handleGet(w http.ResponseWriter, id string) {
	f.mu.Lock()
	raw, exists := f.workflows[id]
	missing := f.VerifyMissing
	f.mu.Unlock()

	if !exists || missing {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (f *FakeServer) handleExecute(w http.ResponseWriter, r *http.Request, workflowID string) {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") && !f.StreamAsJSON {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, frame := range f.StreamFrames {
			w.Write([]byte(frame + "\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
		return
	}

	status := f.SyncStatus
	if status == 0 {
		status = http.StatusOK
	}
	body := f.SyncResult
	if body == nil {
		body = map[string]any{
			"data": map[string]any{
				"workflow_id":  workflowID,
				"success":      true,
				"step_results": map[string]any{},
			},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeOptional(w http.ResponseWriter, body any) {
	if body == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
