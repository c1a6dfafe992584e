package types

// AgentInfo describes one entry of the server's agent directory as
// returned by GET /agents. The ID is server-issued and changes across
// server restarts; Name is the stable human-readable reference callers
// use in workflow steps.
type AgentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}
