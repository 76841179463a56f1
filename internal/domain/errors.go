package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrMemoryNotFound signals a missing memory.
	ErrMemoryNotFound = errors.New("memory not found")
	// ErrCategoryNotFound signals an unknown category label.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrForbidden signals access to a memory owned by someone else.
	ErrForbidden = errors.New("forbidden")
	// ErrVectorDimMismatch signals a vector dimension mismatch against the configured model.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrClassificationFailed signals unparseable classifier output after all recovery steps.
	ErrClassificationFailed = errors.New("classification failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat completion provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrSearchFailed signals that a search request could not be served.
	ErrSearchFailed = errors.New("search failed")
	// ErrInvalidInput signals a malformed request payload.
	ErrInvalidInput = errors.New("invalid input")
)
