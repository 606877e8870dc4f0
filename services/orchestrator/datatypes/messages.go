// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the provider-agnostic wire types shared between
// the assistant orchestrator, the LLM clients, and the CLI.
package datatypes

// Role values accepted in a conversation. The orchestrator never infers a
// role; every message carries the role supplied by the caller.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a conversation.
//
// Description:
//
//	Ordered sequences of Messages are owned by the caller (the browsing
//	client keeps its own history); the orchestrator treats them as
//	request-scoped input and never persists them.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether r is one of the three accepted roles.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
