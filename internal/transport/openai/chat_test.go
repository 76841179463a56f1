package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": ` + jsonString(content) + `},
				"finish_reason": "stop"
			}]
		}`))
	}))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestChatClient(baseURL string) *ChatClient {
	return NewChatClient(&ChatConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestChatClient_Complete(t *testing.T) {
	server := chatServer(t, `{"category": "books"}`)
	defer server.Close()

	got, err := newTestChatClient(server.URL).Complete(
		context.Background(), "system prompt", "user prompt", 0.3, 100)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != `{"category": "books"}` {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestChatClient_RecordsTokenUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "ok"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 5, "total_tokens": 45}
		}`))
	}))
	defer server.Close()

	rec := &mockUsageRecorder{}
	client := NewChatClient(&ChatConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Usage:   rec,
		Logger:  zap.NewNop(),
	})

	if _, err := client.Complete(context.Background(), "s", "u", 0.3, 100); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if len(rec.recorded) != 1 || rec.recorded[0] != 45 {
		t.Fatalf("expected 45 tokens recorded once, got %v", rec.recorded)
	}
}

func TestChatClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	_, err := newTestChatClient(server.URL).Complete(
		context.Background(), "s", "u", 0.3, 100)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChatClient_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "upstream exploded"}`))
	}))
	defer server.Close()

	_, err := newTestChatClient(server.URL).Complete(
		context.Background(), "s", "u", 0.3, 100)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}
