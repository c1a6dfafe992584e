package workflow

// Step defaults matching the server's generic inference function.
const (
	DefaultFunction       = "inference"
	DefaultTimeoutSeconds = 60
	DefaultMaxRetries     = 2
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 1000
)

// Step is one unit of work in a pipeline. It references its agent by
// human-readable name only; the server-issued agent id is substituted
// at registration time and never stored on the model.
//
// TimeoutSeconds and MaxRetries declare the per-step resilience budget
// enforced server-side.
type Step struct {
	StepID            string
	AgentName         string
	Prompt            string
	FunctionName      string
	TimeoutSeconds    int
	MaxRetries        int
	ContinueOnFailure bool
	Temperature       float64
	MaxTokens         int
	Parameters        map[string]any
}

// StepOption customizes a step beyond its defaults.
type StepOption func(*Step)

// WithFunction sets the operation to invoke on the agent.
func WithFunction(name string) StepOption {
	return func(s *Step) { s.FunctionName = name }
}

// WithTimeout sets the per-step timeout in seconds.
func WithTimeout(seconds int) StepOption {
	return func(s *Step) { s.TimeoutSeconds = seconds }
}

// WithMaxRetries sets the server-side retry budget for the step.
func WithMaxRetries(n int) StepOption {
	return func(s *Step) { s.MaxRetries = n }
}

// WithContinueOnFailure lets the pipeline proceed past a failed step.
func WithContinueOnFailure() StepOption {
	return func(s *Step) { s.ContinueOnFailure = true }
}

// WithTemperature sets the sampling temperature forwarded to the agent.
func WithTemperature(t float64) StepOption {
	return func(s *Step) { s.Temperature = t }
}

// WithMaxTokens sets the generation budget forwarded to the agent.
func WithMaxTokens(n int) StepOption {
	return func(s *Step) { s.MaxTokens = n }
}

// WithParameters merges extra opaque parameters into the step payload.
func WithParameters(params map[string]any) StepOption {
	return func(s *Step) {
		if s.Parameters == nil {
			s.Parameters = make(map[string]any, len(params))
		}
		for k, v := range params {
			s.Parameters[k] = v
		}
	}
}

// NewStep creates a step bound to the named agent with the given prompt
// and the package defaults, then applies the options.
func NewStep(stepID, agentName, prompt string, opts ...StepOption) Step {
	s := Step{
		StepID:         stepID,
		AgentName:      agentName,
		Prompt:         prompt,
		FunctionName:   DefaultFunction,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxRetries:     DefaultMaxRetries,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
