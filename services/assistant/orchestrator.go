// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/telawat/assistant/services/assistant/grounding"
	"github.com/telawat/assistant/services/assistant/intent"
	"github.com/telawat/assistant/services/assistant/retrieval"
	"github.com/telawat/assistant/services/llm"
	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// Orchestrator runs one chat turn end to end: sanitize, resolve,
// dispatch, ground, stream.
//
// Description:
//
//	The turn makes at most two model calls. The first is a small
//	non-streaming call that either emits an action tag or nothing; the
//	second streams the visible answer. Catalog failures never abort a
//	turn, only degrade the grounding. An upstream model failure before
//	any streamed byte is returned to the caller; after the first byte
//	the error surfaces through the chunk callback's return value.
//
// Thread Safety: Safe for concurrent use.
type Orchestrator struct {
	client     llm.LLMClient
	resolver   *intent.Resolver
	dispatcher *retrieval.Dispatcher
	persona    string
	logger     *slog.Logger
}

// NewOrchestrator wires the pipeline from its collaborators.
func NewOrchestrator(client llm.LLMClient, store retrieval.Store, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:     client,
		resolver:   intent.NewResolver(client, logger),
		dispatcher: retrieval.NewDispatcher(store, cfg.RetrievalLimits(), logger, cfg.FallbackAlternatives()),
		persona:    cfg.Persona,
		logger:     logger,
	}
}

// Chat executes one turn over the given history, delivering the answer
// incrementally through onChunk. A non-nil return from onChunk stops
// the stream and propagates in the returned error chain.
func (o *Orchestrator) Chat(ctx context.Context, history []datatypes.Message, onChunk func(string) error) error {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assistant.Orchestrator.Chat",
		trace.WithAttributes(attribute.Int("history_length", len(history))))
	defer span.End()

	grounded := false
	err := o.chat(ctx, history, onChunk, &grounded)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	turnDuration.WithLabelValues(strconv.FormatBool(grounded), status).Observe(time.Since(start).Seconds())
	return err
}

func (o *Orchestrator) chat(ctx context.Context, history []datatypes.Message, onChunk func(string) error, grounded *bool) error {
	sanitized := intent.Sanitize(history)

	action, err := o.resolver.Resolve(ctx, sanitized)
	if err != nil {
		return fmt.Errorf("assistant: %w", err)
	}
	actionsTotal.WithLabelValues(string(action.Kind)).Inc()

	messages := make([]datatypes.Message, 0, len(sanitized)+2)
	messages = append(messages, datatypes.Message{Role: datatypes.RoleSystem, Content: o.persona})
	messages = append(messages, sanitized...)

	if action.Kind != intent.ActionNone {
		*grounded = true
		result := o.dispatchWithSpan(ctx, action)
		dispatchOutcomesTotal.WithLabelValues(string(action.Kind), string(result.Classification)).Inc()
		o.logger.Info("action dispatched",
			"kind", string(action.Kind),
			"classification", string(result.Classification),
			"recordings", len(result.Recordings),
			"partial", result.Partial)

		// The grounding block goes last so it supersedes the persona.
		messages = append(messages, grounding.Compose(result).Message())
	}

	return o.stream(ctx, messages, onChunk)
}

func (o *Orchestrator) dispatchWithSpan(ctx context.Context, action intent.Action) retrieval.Result {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assistant.Dispatcher.Dispatch",
		trace.WithAttributes(attribute.String("action.kind", string(action.Kind))))
	defer span.End()
	result := o.dispatcher.Dispatch(ctx, action)
	span.SetAttributes(
		attribute.String("classification", string(result.Classification)),
		attribute.Bool("partial", result.Partial))
	return result
}

func (o *Orchestrator) stream(ctx context.Context, messages []datatypes.Message, onChunk func(string) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "assistant.Orchestrator.stream")
	defer span.End()

	// The second model call can echo its own tag protocol mid-answer;
	// filter the token stream so tags never reach the user.
	filter := &intent.TagFilter{}
	err := o.client.ChatStream(ctx, messages, llm.GenerationParams{}, func(ev llm.StreamEvent) error {
		switch ev.Type {
		case llm.StreamEventToken:
			if out := filter.Feed(ev.Content); out != "" {
				return onChunk(out)
			}
			return nil
		case llm.StreamEventError:
			return errors.New(ev.Error)
		default:
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("assistant: streaming answer: %w", err)
	}
	if out := filter.Flush(); out != "" {
		if err := onChunk(out); err != nil {
			return fmt.Errorf("assistant: streaming answer: %w", err)
		}
	}
	return nil
}
