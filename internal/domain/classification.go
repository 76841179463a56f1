package domain

// DefaultConfidence is used when the classifier omits a confidence score.
const DefaultConfidence = 0.5

// ClassificationResult is the classifier's verdict for one memory.
// Transient: consumed by the pipeline to mutate the memory, never stored.
type ClassificationResult struct {
	Category      string
	Confidence    float64
	Reasoning     string
	ExtractedData map[string]any
}

// Intent labels for the user-facing search-intent flow. This is a second,
// lighter taxonomy distinct from the memory categories.
const (
	IntentMovie   = "movie"
	IntentBook    = "book"
	IntentRecipe  = "recipe"
	IntentPlace   = "place"
	IntentProduct = "product"
	IntentIdea    = "idea"
	IntentTask    = "task"
)

// IntentResult describes what the user likely wants done with their input.
type IntentResult struct {
	Intent      string
	SearchQuery string
	NeedsSearch bool
	Confidence  float64
	Reasoning   string
}

// DefaultIntent is the safe fallback returned when intent detection cannot
// parse the model output. The intent flow sits on a request path with no
// sensible error UX, so it must never fail.
func DefaultIntent(userInput string) IntentResult {
	return IntentResult{
		Intent:      IntentIdea,
		SearchQuery: userInput,
		NeedsSearch: false,
		Confidence:  DefaultConfidence,
		Reasoning:   "failed to parse model response",
	}
}
