package converter

// State is a step of the per-job state machine:
//
//	Initialized → WorkspaceReady → Rasterized → Recognized → Assembled → Done
//
// with Failed reachable from any state.
type State int

const (
	StateInitialized State = iota
	StateWorkspaceReady
	StateRasterized
	StateRecognized
	StateAssembled
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateWorkspaceReady:
		return "workspace_ready"
	case StateRasterized:
		return "rasterized"
	case StateRecognized:
		return "recognized"
	case StateAssembled:
		return "assembled"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageImage is one rasterized page inside a job workspace.
type PageImage struct {
	Number int // 1-based
	Path   string
}

// PageText is the recognized text of one page. Empty text is valid.
type PageText struct {
	Number int
	Text   string
}

// Job is one PDF → DOCX conversion, owned by a single Convert call.
type Job struct {
	ID          string
	Source      string
	Destination string
	Workspace   string
	State       State
}

// Result is the outcome of Convert. It is returned on success and failure.
type Result struct {
	JobID       string
	Source      string
	Destination string
	State       State
	Pages       int

	// SkippedPages lists pages whose recognition failed and were written as
	// empty paragraphs. Only populated when skipping is enabled.
	SkippedPages []int
}

// Succeeded reports whether the job reached StateDone.
func (r *Result) Succeeded() bool {
	return r != nil && r.State == StateDone
}
