package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lucasnoah/changegate/internal/config"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	t.Setenv("TEST_LLM_KEY", "test-key")
	c, err := NewClient(config.LLM{
		Model:     "gpt-4o-mini",
		BaseURL:   serverURL,
		APIKeyEnv: "TEST_LLM_KEY",
		MaxTokens: 1024,
		Timeout:   "10s",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGenerate_HappyPath(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "--- a/x\n+++ b/x"}}},
			Usage:   chatUsage{TotalTokens: 42},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	resp, err := c.Generate(context.Background(), Request{System: "you review code", User: "generate a diff"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "--- a/x\n+++ b/x" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %d", resp.TokensUsed)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("unexpected messages %+v", gotBody.Messages)
	}
	if gotBody.MaxTokens != 1024 {
		t.Errorf("expected configured max tokens, got %d", gotBody.MaxTokens)
	}
}

func TestGenerate_RetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	resp, err := c.Generate(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestGenerate_AuthErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Generate(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected 1 call for auth error, got %d", calls)
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if _, err := c.Generate(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "")
	if _, err := NewClient(config.LLM{APIKeyEnv: "TEST_LLM_KEY"}); err == nil {
		t.Fatal("expected error when key env is empty")
	}
}
