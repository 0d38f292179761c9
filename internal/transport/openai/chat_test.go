package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopassist/internal/domain"
	"github.com/kailas-cloud/shopassist/internal/domain/chat"
)

func newTestChat(t *testing.T, h http.HandlerFunc) *ChatClient {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewChatClient(&ChatConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-chat",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestChatClient_CompleteText(t *testing.T) {
	var got map[string]any
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c1", "object": "chat.completion", "model": "test-chat",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"primaryQuery\":\"milk\"}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
		}`))
	})

	ctx, usage := domain.NewContextWithUsage(context.Background())
	res, err := c.Complete(ctx, chat.Request{
		Messages:   []chat.Message{{Role: chat.RoleUser, Content: "milk"}},
		JSONOutput: true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Message.Content != `{"primaryQuery":"milk"}` {
		t.Errorf("content = %q", res.Message.Content)
	}
	if res.TotalTokens != 20 || usage.LLMTokens() != 20 {
		t.Errorf("tokens = %d, usage = %d, want 20", res.TotalTokens, usage.LLMTokens())
	}

	rf, ok := got["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", got["response_format"])
	}
	if _, hasTools := got["tools"]; hasTools {
		t.Error("tools should be omitted when none are given")
	}
}

func TestChatClient_CompleteToolCalls(t *testing.T) {
	var got struct {
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name       string          `json:"name"`
				Parameters json.RawMessage `json:"parameters"`
			} `json:"function"`
		} `json:"tools"`
		Messages []struct {
			Role       string `json:"role"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
	}
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "c2", "object": "chat.completion", "model": "test-chat",
			"choices": [{"index": 0, "finish_reason": "tool_calls",
				"message": {"role": "assistant", "content": "",
					"tool_calls": [{"id": "call_1", "type": "function",
						"function": {"name": "getCart", "arguments": "{}"}}]}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10}
		}`))
	})

	res, err := c.Complete(context.Background(), chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleUser, Content: "what's in my cart"},
			{Role: chat.RoleTool, Content: `{"success":true}`, ToolCallID: "call_0", Name: "getAllCarts"},
		},
		Tools: []chat.Tool{{
			Name:        "getCart",
			Description: "Get a cart",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(res.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(res.Message.ToolCalls))
	}
	tc := res.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "getCart" || tc.Arguments != "{}" {
		t.Errorf("unexpected tool call: %+v", tc)
	}

	if len(got.Tools) != 1 || got.Tools[0].Type != "function" || got.Tools[0].Function.Name != "getCart" {
		t.Errorf("unexpected tools on the wire: %+v", got.Tools)
	}
	if len(got.Messages) != 2 || got.Messages[1].ToolCallID != "call_0" {
		t.Errorf("tool message not forwarded: %+v", got.Messages)
	}
}

func TestChatClient_APIError(t *testing.T) {
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := c.Complete(context.Background(), chat.Request{
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Fatalf("expected ErrLLMUnavailable, got %v", err)
	}
}

func TestChatClient_NoChoices(t *testing.T) {
	c := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c3","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Complete(context.Background(), chat.Request{
		Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Fatalf("expected ErrLLMUnavailable, got %v", err)
	}
}
