// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package intent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/telawat/assistant/services/llm"
	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// resolverSystemPrompt is the fixed instruction set for the intent call.
// It enumerates the closed action vocabulary, forbids outside knowledge,
// and defines the no-tag conversational path.
const resolverSystemPrompt = `You are the intent router for an Arabic Quran recitations catalog (تلاوات).
Read the conversation and decide whether answering the user's LAST message requires looking up the catalog.

If a lookup is required, output EXACTLY ONE tag from this closed list, on its own line:

[SEARCH_RECITER: name]            - the user asks about a reciter by name ("من هو القارئ فلان؟", "أين تلاوات فلان؟")
[SEARCH_AYAH: verse text | reciter name]  - the user quotes part of a verse and wants recordings of it; the "| reciter name" part is optional
[SEARCH_SURAH: surah name]        - the user wants recordings of a chapter ("أريد سورة الكهف")
[GET_RECITATIONS: id]             - the user wants the recordings of a reciter already identified by numeric id in this conversation
[GET_INFO: id]                    - the user wants the profile of a reciter already identified by numeric id in this conversation
[GET_FEATURED]                    - the user asks what is new or featured
[LIST_RECITERS]                   - the user asks which reciters exist in the catalog

Rules:
- You know NOTHING about reciters, recordings, or verses by yourself. Any factual answer must come from a lookup; never answer from memory.
- For greetings, thanks, and small talk, output NO tag at all; just reply conversationally in Arabic.
- Resolve references like "أخبرني المزيد عنه" by re-reading earlier turns for the last named reciter and using its name or id.
- Output at most one tag. Never invent tag kinds or ids.`

// Resolver issues the single non-streaming intent call and parses the
// resulting action tag.
//
// Thread Safety: Resolver is safe for concurrent use.
type Resolver struct {
	client llm.LLMClient
	logger *slog.Logger
}

// NewResolver creates a Resolver.
//
// Inputs:
//   - client: The LLM client. Must not be nil.
//   - logger: Logger instance. Nil uses slog.Default().
func NewResolver(client llm.LLMClient, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve maps a sanitized conversation to exactly one Action.
//
// Description:
//
//	Issues one non-streaming generation call with the fixed instruction
//	set, then extracts the first well-formed tag from the reply. A
//	malformed or missing tag is an expected, frequent model behavior and
//	degrades silently to None (conversational mode) with no retry.
//	Only an outright LLM call failure is an error; the caller surfaces
//	it as a request failure.
//
// Inputs:
//   - ctx: Context for cancellation; propagated into the LLM call.
//   - history: The sanitized conversation.
//
// Outputs:
//   - Action: Always a valid variant; None on parse failure.
//   - error: Non-nil only when the upstream call itself fails.
func (r *Resolver) Resolve(ctx context.Context, history []datatypes.Message) (Action, error) {
	messages := make([]datatypes.Message, 0, len(history)+1)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleSystem,
		Content: resolverSystemPrompt,
	})
	messages = append(messages, history...)

	temperature := float32(0)
	maxTokens := 256
	raw, err := r.client.Chat(ctx, messages, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return None(), fmt.Errorf("intent: resolving action: %w", err)
	}

	action, found := ParseAction(raw)
	if !found {
		r.logger.Debug("No action tag in resolver output, conversational mode",
			slog.Int("output_len", len(raw)))
		return None(), nil
	}

	r.logger.Info("Resolved action",
		slog.String("kind", string(action.Kind)),
		slog.Int64("reciter_id", action.ReciterID))
	return action, nil
}
