// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

func openaiTextResponse(text string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + jsonString(text) + `},"finish_reason":"stop"}]}`
}

func TestOpenAIChat_Success(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openaiTextResponse("أهلا بك")))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", server.URL)
	got, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "user", Content: "مرحبا"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if got != "أهلا بك" {
		t.Errorf("Chat = %q, want %q", got, "أهلا بك")
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want %q", gotReq.Model, "gpt-4o-mini")
	}
}

func TestOpenAIChat_KeepsOnlyLastSystemMessage(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(openaiTextResponse("ok")))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	_, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "system", Content: "persona prompt"},
		{Role: "user", Content: "سؤال"},
		{Role: "system", Content: "grounding facts"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}

	systems := 0
	for _, m := range gotReq.Messages {
		if m.Role == "system" {
			systems++
			if m.Content != "grounding facts" {
				t.Errorf("kept system message = %q, want the last one", m.Content)
			}
		}
	}
	if systems != 1 {
		t.Errorf("system messages in request = %d, want 1", systems)
	}
}

func TestOpenAIChat_UnknownRoleBecomesUser(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(openaiTextResponse("ok")))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	_, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "tool", Content: "payload"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("unknown role should map to user, got %+v", gotReq.Messages)
	}
}

func TestOpenAIChat_APIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	_, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "user", Content: "hi"},
	}, GenerationParams{})
	if err == nil {
		t.Fatal("expected error on 429 status, got nil")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("error = %v, want mention of status 429", err)
	}
}

func TestOpenAIChatStream_DeliversTokensUntilDone(t *testing.T) {
	sse := strings.Join([]string{
		`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"أهلا "}}]}`,
		"",
		`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"بك"}}]}`,
		"",
		"data: [DONE]",
		"",
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream request had stream=false")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sse))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	var tokens []string
	var done bool
	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: "user", Content: "مرحبا"},
	}, GenerationParams{}, func(ev StreamEvent) error {
		switch ev.Type {
		case StreamEventToken:
			tokens = append(tokens, ev.Content)
		case StreamEventDone:
			done = true
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	if got := strings.Join(tokens, ""); got != "أهلا بك" {
		t.Errorf("streamed text = %q, want %q", got, "أهلا بك")
	}
	if !done {
		t.Error("stream never delivered a done event")
	}
}

func TestOpenAIChatStream_MalformedChunkIsSkipped(t *testing.T) {
	sse := strings.Join([]string{
		"data: {not json",
		"",
		`data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"نص"}}]}`,
		"",
		"data: [DONE]",
		"",
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sse))
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	var tokens []string
	err := client.ChatStream(context.Background(), []datatypes.Message{
		{Role: "user", Content: "hi"},
	}, GenerationParams{}, func(ev StreamEvent) error {
		if ev.Type == StreamEventToken {
			tokens = append(tokens, ev.Content)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "نص" {
		t.Errorf("tokens = %v, want just the valid chunk", tokens)
	}
}
