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
	"strings"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

// archivedPlaceholder replaces prior tool-bearing turns. An unconstrained
// model treats earlier tool output as still-valid context and repeats
// stale results; collapsing history prevents that without losing
// conversational continuity.
const archivedPlaceholder = "(نتيجة استرجاع سابقة، تمت أرشفتها)"

// artifactMarkers identify machine-generated payloads in assistant turns:
// the canonical link references the grounding composer emits, and playable
// asset URLs.
var artifactMarkers = []string{
	"/reciters/",
	"/recordings/",
	".mp3",
}

// containsToolArtifacts reports whether content embeds a prior tool
// result: a literal action tag or one of the domain payload markers.
func containsToolArtifacts(content string) bool {
	if tagPattern.MatchString(content) {
		return true
	}
	for _, marker := range artifactMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// Sanitize rewrites a conversation so stale tool output cannot poison the
// current turn.
//
// Description:
//
//	Content-only transform: the returned history has the same length and
//	role ordering as the input. Every message except the final one that
//	carries tool artifacts is replaced with an opaque placeholder. The
//	final message is never rewritten beyond tag stripping, preserving the
//	user's literal latest request. Literal action tags are stripped from
//	every message, including the final one.
//
// Inputs:
//   - history: The caller-owned conversation. Not mutated.
//
// Outputs:
//   - []datatypes.Message: A new slice; the input is left untouched.
func Sanitize(history []datatypes.Message) []datatypes.Message {
	if len(history) == 0 {
		return nil
	}

	out := make([]datatypes.Message, len(history))
	last := len(history) - 1
	for i, msg := range history {
		content := msg.Content
		if i != last && containsToolArtifacts(content) {
			content = archivedPlaceholder
		} else {
			content = StripActionTags(content)
		}
		out[i] = datatypes.Message{Role: msg.Role, Content: content}
	}
	return out
}
