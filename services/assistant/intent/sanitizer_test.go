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
	"testing"

	"github.com/telawat/assistant/services/orchestrator/datatypes"
)

func TestSanitize_PreservesLengthAndRoles(t *testing.T) {
	history := []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "أين تلاوات المنشاوي؟"},
		{Role: datatypes.RoleAssistant, Content: "وجدت: /reciters/3 و /recordings/9"},
		{Role: datatypes.RoleUser, Content: "أخبرني المزيد عنه"},
	}
	got := Sanitize(history)

	if len(got) != len(history) {
		t.Fatalf("length changed: %d != %d", len(got), len(history))
	}
	for i := range history {
		if got[i].Role != history[i].Role {
			t.Errorf("role[%d] changed: %q != %q", i, got[i].Role, history[i].Role)
		}
	}
}

func TestSanitize_ArchivesPriorToolOutput(t *testing.T) {
	history := []datatypes.Message{
		{Role: datatypes.RoleAssistant, Content: "استمع هنا: https://cdn.example.com/files/kawthar.mp3"},
		{Role: datatypes.RoleUser, Content: "وماذا عن سورة الفجر؟"},
	}
	got := Sanitize(history)

	if strings.Contains(got[0].Content, ".mp3") {
		t.Errorf("playback link survived sanitization: %q", got[0].Content)
	}
	if got[0].Content != archivedPlaceholder {
		t.Errorf("expected placeholder, got %q", got[0].Content)
	}
}

func TestSanitize_FinalMessageOnlyTagStripped(t *testing.T) {
	// Even if the final message carries artifacts, it is only tag-stripped:
	// the user's literal latest request must be preserved.
	history := []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "شغّل /recordings/4 [SEARCH_RECITER: الحصري] من فضلك"},
	}
	got := Sanitize(history)

	if strings.Contains(got[0].Content, "SEARCH_RECITER") {
		t.Errorf("tag survived in final message: %q", got[0].Content)
	}
	if !strings.Contains(got[0].Content, "/recordings/4") {
		t.Errorf("final message content was archived, want it preserved: %q", got[0].Content)
	}
}

func TestSanitize_CleanHistoryUntouched(t *testing.T) {
	history := []datatypes.Message{
		{Role: datatypes.RoleUser, Content: "السلام عليكم"},
		{Role: datatypes.RoleAssistant, Content: "وعليكم السلام ورحمة الله"},
		{Role: datatypes.RoleUser, Content: "كيف حالك؟"},
	}
	got := Sanitize(history)
	for i := range history {
		if got[i].Content != history[i].Content {
			t.Errorf("clean content[%d] was modified: %q", i, got[i].Content)
		}
	}
}

func TestSanitize_DoesNotMutateInput(t *testing.T) {
	history := []datatypes.Message{
		{Role: datatypes.RoleAssistant, Content: "انظر /reciters/1"},
		{Role: datatypes.RoleUser, Content: "شكراً"},
	}
	_ = Sanitize(history)
	if history[0].Content != "انظر /reciters/1" {
		t.Error("Sanitize mutated the caller's history")
	}
}

func TestSanitize_EmptyHistory(t *testing.T) {
	if got := Sanitize(nil); got != nil {
		t.Errorf("Sanitize(nil) = %v, want nil", got)
	}
}
