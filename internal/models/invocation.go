package models

// InvocationState represents the lifecycle state of one scanner process
type InvocationState string

const (
	InvocationStarting  InvocationState = "starting"
	InvocationRunning   InvocationState = "running"
	InvocationSucceeded InvocationState = "succeeded"
	InvocationFailed    InvocationState = "failed"
)

// IsTerminal returns true if the invocation has reached a terminal state
func (s InvocationState) IsTerminal() bool {
	return s == InvocationSucceeded || s == InvocationFailed
}

// CanTransition reports whether moving from s to next is a legal step.
// starting -> running -> {succeeded, failed}, and starting -> failed on launch errors.
func (s InvocationState) CanTransition(next InvocationState) bool {
	switch s {
	case InvocationStarting:
		return next == InvocationRunning || next == InvocationFailed
	case InvocationRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// Stream identifies the process stream an output chunk came from
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// OutputChunk is a fragment of scanner output, passed through verbatim
type OutputChunk struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
}

// FailureKind classifies why an invocation did not succeed
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureLaunch    FailureKind = "launch"
	FailureProcess   FailureKind = "process"
	FailureOverflow  FailureKind = "overflow"
	FailureCancelled FailureKind = "cancelled"
)

// Outcome is the final result of an invocation
type Outcome struct {
	Success    bool        `json:"success"`
	ExitCode   int         `json:"exit_code"`
	ReportsDir string      `json:"reports_dir"`
	Message    string      `json:"message"`
	Failure    FailureKind `json:"failure,omitempty"`

	// Err holds the underlying error for failed invocations
	Err error `json:"-"`
}

// LaunchFailed reports whether the scanner could not be started at all
func (o Outcome) LaunchFailed() bool {
	return o.Failure == FailureLaunch
}

// Event is one value of an invocation's output sequence.
// Exactly one of Chunk or Outcome is set; the Outcome event is always last.
type Event struct {
	Chunk   *OutputChunk
	Outcome *Outcome
}

// IsOutcome returns true for the terminal event
func (e Event) IsOutcome() bool {
	return e.Outcome != nil
}
