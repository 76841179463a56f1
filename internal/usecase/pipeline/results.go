package pipeline

// Status is the terminal state of one pipeline stage for one memory.
type Status string

// Stage status values. A skipped stage found no memory to work on, which is
// benign; a failed stage hit a business-level error that will not be retried.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ClassifyOutcome reports one classification stage execution.
type ClassifyOutcome struct {
	MemoryID   string   `json:"memory_id"`
	Status     Status   `json:"status"`
	Category   string   `json:"category,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// EmbedOutcome reports one embedding stage execution.
type EmbedOutcome struct {
	MemoryID   string `json:"memory_id"`
	Status     Status `json:"status"`
	Dimensions int    `json:"dimensions,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProcessOutcome is the composite result: both stages reported independently.
type ProcessOutcome struct {
	MemoryID       string          `json:"memory_id"`
	Classification ClassifyOutcome `json:"classification"`
	Embedding      EmbedOutcome    `json:"embedding"`
}

// BatchError carries per-id failure detail for a batch run.
type BatchError struct {
	MemoryID string `json:"memory_id"`
	Error    string `json:"error"`
}

// BatchOutcome summarizes an embedding batch: one entry per input id, a
// failure never aborting the rest.
type BatchOutcome struct {
	Processed    int            `json:"processed"`
	Errors       int            `json:"errors"`
	Results      []EmbedOutcome `json:"results"`
	ErrorDetails []BatchError   `json:"error_details"`
}
