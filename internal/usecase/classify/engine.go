package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
)

// Engine maps free-text content onto the memory taxonomy through an LLM.
//
// Failure policy by call: Classify returns a typed error so the background
// pipeline can decide what to do. ExtractEntities, GenerateTags and
// DetectIntent degrade to documented safe defaults and never propagate a
// failure to their caller.
type Engine struct {
	llm     ChatCompleter
	maxTags int
	logger  *zap.Logger
}

// New creates a classification engine.
func New(llm ChatCompleter, maxTags int, logger *zap.Logger) *Engine {
	if maxTags <= 0 {
		maxTags = 5
	}
	return &Engine{llm: llm, maxTags: maxTags, logger: logger}
}

// classifyResponse is the wire shape the model is asked to produce.
type classifyResponse struct {
	Category      string         `json:"category"`
	Confidence    *float64       `json:"confidence"`
	Reasoning     string         `json:"reasoning"`
	ExtractedData map[string]any `json:"extracted_data"`
}

// Classify maps content to a taxonomy category with confidence and
// category-specific extracted fields.
func (e *Engine) Classify(
	ctx context.Context, content string, sourceType domain.SourceType, title string,
) (domain.ClassificationResult, error) {
	raw, err := e.llm.Complete(ctx,
		classifySystemPrompt, classifyUserPrompt(content, title),
		classifyTemperature, classifyMaxTokens,
	)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("classify completion: %w", err)
	}

	var resp classifyResponse
	if status := parseModelJSON(raw, &resp); status == parseFailed {
		e.logger.Warn("unparseable classification response",
			zap.String("source_type", string(sourceType)),
			zap.Int("response_len", len(raw)),
		)
		return domain.ClassificationResult{}, fmt.Errorf(
			"model returned no parseable JSON: %w", domain.ErrClassificationFailed)
	}

	result := domain.ClassificationResult{
		Category:      resp.Category,
		Confidence:    domain.DefaultConfidence,
		Reasoning:     resp.Reasoning,
		ExtractedData: resp.ExtractedData,
	}
	if result.Category == "" {
		result.Category = domain.FallbackCategory
	}
	if resp.Confidence != nil {
		result.Confidence = clamp01(*resp.Confidence)
	}
	if result.ExtractedData == nil {
		result.ExtractedData = map[string]any{}
	}

	return result, nil
}

// ExtractEntities requests category-specific structured fields. It never
// blocks the pipeline: any failure yields an empty map.
func (e *Engine) ExtractEntities(ctx context.Context, content, category string) map[string]any {
	raw, err := e.llm.Complete(ctx,
		entitySystemPrompt(category), content,
		entityTemperature, entityMaxTokens,
	)
	if err != nil {
		e.logger.Warn("entity extraction call failed", zap.String("category", category), zap.Error(err))
		return map[string]any{}
	}

	var entities map[string]any
	if status := parseModelJSON(raw, &entities); status == parseFailed || entities == nil {
		e.logger.Warn("unparseable entity response", zap.String("category", category))
		return map[string]any{}
	}
	return entities
}

// GenerateTags requests up to maxTags short tags. Failures degrade to nil.
func (e *Engine) GenerateTags(ctx context.Context, content string, maxTags int) []string {
	if maxTags <= 0 {
		maxTags = e.maxTags
	}

	raw, err := e.llm.Complete(ctx,
		tagsSystemPrompt(maxTags), content,
		tagsTemperature, tagsMaxTokens,
	)
	if err != nil {
		e.logger.Warn("tag generation call failed", zap.Error(err))
		return nil
	}

	tags := make([]string, 0, maxTags)
	for _, tok := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(tok)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// intentResponse is the wire shape of the intent classifier.
type intentResponse struct {
	Intent      string   `json:"intent"`
	SearchQuery string   `json:"search_query"`
	NeedsSearch bool     `json:"needs_search"`
	Confidence  *float64 `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
}

// DetectIntent classifies what the user wants done with their input. It sits
// on a synchronous request path, so every failure maps to the safe default
// instead of an error.
func (e *Engine) DetectIntent(ctx context.Context, userInput string) domain.IntentResult {
	raw, err := e.llm.Complete(ctx,
		intentSystemPrompt, userInput,
		intentTemperature, intentMaxTokens,
	)
	if err != nil {
		e.logger.Warn("intent detection call failed", zap.Error(err))
		return domain.DefaultIntent(userInput)
	}

	var resp intentResponse
	if status := parseModelJSON(raw, &resp); status == parseFailed {
		e.logger.Warn("unparseable intent response", zap.Int("response_len", len(raw)))
		return domain.DefaultIntent(userInput)
	}
	if !knownIntents[resp.Intent] {
		return domain.DefaultIntent(userInput)
	}

	result := domain.IntentResult{
		Intent:      resp.Intent,
		SearchQuery: resp.SearchQuery,
		NeedsSearch: resp.NeedsSearch,
		Confidence:  domain.DefaultConfidence,
		Reasoning:   resp.Reasoning,
	}
	if resp.Confidence != nil {
		result.Confidence = clamp01(*resp.Confidence)
	}
	if result.SearchQuery == "" {
		result.SearchQuery = userInput
	}
	return result
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
