// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides raw-HTTP clients for the language model providers
// the assistant can run against (Anthropic, OpenAI). All clients implement
// the LLMClient interface: a non-streaming Chat call used for intent
// resolution and a streaming ChatStream call used for the user-visible
// reply.
package llm

import (
	"context"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// GenerationParams holds provider-agnostic generation options.
//
// Description:
//
//	Nil pointer fields are omitted from the provider request so the
//	provider default applies. ModelOverride replaces the client's
//	configured model for a single call.
type GenerationParams struct {
	Temperature   *float32
	TopP          *float32
	MaxTokens     *int
	Stop          []string
	ModelOverride string
}

// StreamEventType discriminates events delivered by ChatStream.
type StreamEventType string

const (
	// StreamEventToken carries a chunk of the assistant's reply text.
	StreamEventToken StreamEventType = "token"

	// StreamEventDone signals normal end of stream.
	StreamEventDone StreamEventType = "done"

	// StreamEventError carries a terminal stream error description.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is a single incremental event from a streaming completion.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Error   string
}

// StreamCallback receives stream events in order. Returning a non-nil
// error aborts the stream; the client stops reading and returns the
// callback's error wrapped.
type StreamCallback func(StreamEvent) error

// LLMClient is the language model contract consumed by the orchestrator.
//
// Description:
//
//	Chat is the non-streaming call shape (intent resolution). ChatStream
//	is the streaming call shape (final reply). Both honor ctx
//	cancellation; neither retries.
//
// Thread Safety: Implementations must be safe for concurrent use.
type LLMClient interface {
	// Chat sends the conversation and returns the full assistant reply.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// ChatStream sends the conversation and delivers the reply
	// incrementally through callback.
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams, callback StreamCallback) error
}
