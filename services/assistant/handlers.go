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
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// ChatRequest is the body of POST /v1/assistant/chat: the full visible
// conversation, oldest first, ending with the user's new message.
type ChatRequest struct {
	Messages []datatypes.Message `json:"messages" binding:"required"`
}

// ErrorResponse is the structured error body for non-streaming failures.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Handlers carries the HTTP handlers' shared dependencies.
type Handlers struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(orchestrator *Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orchestrator: orchestrator, logger: logger}
}

// HandleChat handles POST /v1/assistant/chat.
//
// Description:
//
//	Validates the conversation payload, runs the pipeline and streams
//	the answer as chunked plain text, flushing after every chunk. An
//	upstream failure before the first byte maps to 502; once streaming
//	has begun the response cannot change status, so later failures are
//	logged and the stream simply ends.
//
// Response:
//
//	200 OK: streamed text/plain answer
//	400 Bad Request: empty or malformed conversation
//	502 Bad Gateway: model upstream failed before streaming began
func (h *Handlers) HandleChat(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleChat")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "invalid request body: " + err.Error(),
			Code:      "INVALID_REQUEST",
			RequestID: requestID,
		})
		return
	}
	if code, msg := validateConversation(req.Messages); code != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     msg,
			Code:      code,
			RequestID: requestID,
		})
		return
	}

	started := false
	err := h.orchestrator.Chat(c.Request.Context(), req.Messages, func(chunk string) error {
		if !started {
			// Deferred to the first chunk so a pre-stream failure can
			// still send its JSON error body with JSON headers.
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
		}
		if _, werr := c.Writer.WriteString(chunk); werr != nil {
			return werr
		}
		started = true
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		if !started {
			logger.Error("chat turn failed before streaming", "error", err)
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:     "upstream model unavailable",
				Code:      "UPSTREAM_FAILED",
				RequestID: requestID,
			})
			return
		}
		// Headers are gone; all that is left is to record the truncation.
		logger.Error("chat stream aborted mid-answer", "error", err)
		return
	}
	logger.Debug("chat turn complete", "messages", len(req.Messages))
}

// validateConversation enforces the request invariants. Returns an
// error code and message, or ("", "") when valid.
func validateConversation(messages []datatypes.Message) (code, msg string) {
	if len(messages) == 0 {
		return "EMPTY_CONVERSATION", "messages must not be empty"
	}
	for i, m := range messages {
		if !datatypes.ValidRole(m.Role) {
			return "INVALID_ROLE", "message " + strconv.Itoa(i) + " has invalid role " + m.Role
		}
		if m.Role == datatypes.RoleSystem {
			return "INVALID_ROLE", "system messages are not accepted from clients"
		}
	}
	if messages[len(messages)-1].Role != datatypes.RoleUser {
		return "INVALID_CONVERSATION", "conversation must end with a user message"
	}
	return "", ""
}

// HandleHealth handles GET /v1/assistant/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/assistant/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
