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
)

func TestParseAction_SearchReciter(t *testing.T) {
	action, ok := ParseAction("سأبحث لك الآن\n[SEARCH_RECITER: المنشاوي]")
	if !ok {
		t.Fatal("expected a parsed action")
	}
	if action.Kind != ActionSearchReciter {
		t.Errorf("kind = %q, want %q", action.Kind, ActionSearchReciter)
	}
	if action.Query != "المنشاوي" {
		t.Errorf("query = %q, want %q", action.Query, "المنشاوي")
	}
}

func TestParseAction_SearchAyahWithHint(t *testing.T) {
	action, ok := ParseAction("[SEARCH_AYAH: انا اعطيناك الكوثر | الحصري]")
	if !ok {
		t.Fatal("expected a parsed action")
	}
	if action.Kind != ActionSearchAyah {
		t.Errorf("kind = %q, want %q", action.Kind, ActionSearchAyah)
	}
	if action.Query != "انا اعطيناك الكوثر" {
		t.Errorf("snippet = %q", action.Query)
	}
	if action.ReciterHint != "الحصري" {
		t.Errorf("hint = %q, want %q", action.ReciterHint, "الحصري")
	}
}

func TestParseAction_SearchAyahWithoutHint(t *testing.T) {
	action, ok := ParseAction("[SEARCH_AYAH: قل هو الله احد]")
	if !ok {
		t.Fatal("expected a parsed action")
	}
	if action.ReciterHint != "" {
		t.Errorf("hint = %q, want empty", action.ReciterHint)
	}
}

func TestParseAction_IDKinds(t *testing.T) {
	action, ok := ParseAction("[GET_RECITATIONS: 42]")
	if !ok || action.Kind != ActionGetRecitations || action.ReciterID != 42 {
		t.Errorf("GET_RECITATIONS parse = %+v, ok=%v", action, ok)
	}

	action, ok = ParseAction("[GET_INFO: 7]")
	if !ok || action.Kind != ActionGetInfo || action.ReciterID != 7 {
		t.Errorf("GET_INFO parse = %+v, ok=%v", action, ok)
	}
}

func TestParseAction_NoArgKinds(t *testing.T) {
	action, ok := ParseAction("here you go [GET_FEATURED]")
	if !ok || action.Kind != ActionGetFeatured {
		t.Errorf("GET_FEATURED parse = %+v, ok=%v", action, ok)
	}

	action, ok = ParseAction("[LIST_RECITERS]")
	if !ok || action.Kind != ActionListReciters {
		t.Errorf("LIST_RECITERS parse = %+v, ok=%v", action, ok)
	}
}

func TestParseAction_TotalOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"مرحباً! كيف أستطيع مساعدتك؟",
		"[UNKNOWN_TAG: something]",
		"[SEARCH_RECITER:]",            // empty body
		"[SEARCH_RECITER:   ]",         // whitespace body
		"[GET_RECITATIONS: not-an-id]", // non-numeric id
		"[GET_RECITATIONS: -3]",        // non-positive id
		"[GET_FEATURED: extra]",        // unexpected body
		"[SEARCH_RECITER المنشاوي]",    // missing colon with body
		"random [ brackets ] in text",
	}
	for _, in := range inputs {
		action, ok := ParseAction(in)
		if ok {
			t.Errorf("ParseAction(%q) parsed unexpectedly: %+v", in, action)
		}
		if action.Kind != ActionNone {
			t.Errorf("ParseAction(%q) kind = %q, want none", in, action.Kind)
		}
	}
}

func TestParseAction_FirstWellFormedWins(t *testing.T) {
	raw := "[GET_INFO: abc] then [SEARCH_SURAH: الكهف] then [GET_FEATURED]"
	action, ok := ParseAction(raw)
	if !ok {
		t.Fatal("expected a parsed action")
	}
	if action.Kind != ActionSearchSurah {
		t.Errorf("kind = %q, want the first well-formed tag (search_surah)", action.Kind)
	}
}

func TestStripActionTags(t *testing.T) {
	in := "سأبحث [SEARCH_RECITER: الحصري] حالاً"
	out := StripActionTags(in)
	if strings.Contains(out, "SEARCH_RECITER") {
		t.Errorf("tag not stripped: %q", out)
	}
	if !strings.Contains(out, "سأبحث") || !strings.Contains(out, "حالاً") {
		t.Errorf("surrounding text was damaged: %q", out)
	}
}
