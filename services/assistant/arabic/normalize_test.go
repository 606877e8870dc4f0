// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package arabic

import (
	"strings"
	"testing"
)

func TestNormalize_AlefVariantsFold(t *testing.T) {
	variants := []string{"أحمد", "إحمد", "آحمد", "احمد"}
	want := Normalize("احمد")
	for _, v := range variants {
		if got := Normalize(v); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalize_HamzaCarriersFold(t *testing.T) {
	if Normalize("مؤمن") != Normalize("مءمن") {
		t.Error("hamza on waw should fold to bare hamza")
	}
	if Normalize("قارئ") != Normalize("قارء") {
		t.Error("hamza on ya should fold to bare hamza")
	}
}

func TestNormalize_TaMarbutaAndMaksura(t *testing.T) {
	if Normalize("ة") != Normalize("ه") {
		t.Error("ta-marbuta should equal ha after normalization")
	}
	if Normalize("مصطفى") != Normalize("مصطفي") {
		t.Error("alef-maksura should equal ya after normalization")
	}
}

func TestNormalize_StripsDiacriticsAndTatweel(t *testing.T) {
	// "الرَّحْمَـٰن" with shadda, sukun, fatha, tatweel, superscript alef.
	decorated := "الرَّحْمَـٰن"
	if got, want := Normalize(decorated), "الرحمن"; got != want {
		t.Errorf("Normalize(%q) = %q, want %q", decorated, got, want)
	}
}

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	if got := Normalize("  عبد   الباسط\tعبد  الصمد "); got != "عبد الباسط عبد الصمد" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"أَهْلاً وسَهْلاً",
		"القارئ محمد صديق المنشاوي",
		"إِنَّا أَعْطَيْنَاكَ الْكَوْثَرَ",
		"english mixed مـــدّ text",
	}
	for _, s := range inputs {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	if Normalize("") != "" {
		t.Error("empty input should return empty string")
	}
	if Normalize("   \t\n ") != "" {
		t.Error("whitespace-only input should return empty string")
	}
}

func TestMatchPattern_Wildcards(t *testing.T) {
	pattern := MatchPattern("منشاوي")
	if !strings.ContainsRune(pattern, Wildcard) {
		t.Errorf("pattern %q should contain a wildcard for the trailing ya", pattern)
	}
	// The wildcard position must match either spelling.
	if !PatternMatches(pattern, Normalize("المنشاوي")) {
		t.Error("pattern should match ya spelling")
	}
	if !PatternMatches(pattern, Normalize("المنشاوى")) {
		t.Error("pattern should match alef-maksura spelling")
	}
}

func TestStripStopwords_RemovesGenericNouns(t *testing.T) {
	tokens := strings.Fields(Normalize("تلاوة الشيخ المنشاوي"))
	got := StripStopwords(tokens)
	if len(got) != 1 || got[0] != Normalize("المنشاوي") {
		t.Errorf("StripStopwords = %v, want only the name token", got)
	}
}

func TestStripStopwords_NeverEmpties(t *testing.T) {
	tokens := strings.Fields(Normalize("تلاوة مجودة"))
	got := StripStopwords(tokens)
	if len(got) != len(tokens) {
		t.Errorf("all-stopword input should fall back to original tokens, got %v", got)
	}
}

func TestStripArticle(t *testing.T) {
	cases := map[string]string{
		"المنشاوي": "منشاوي",
		"الم":      "م",
		"ال":       "ال", // not longer than the article itself
		"منشاوي":   "منشاوي",
	}
	for in, want := range cases {
		if got := StripArticle(in); got != want {
			t.Errorf("StripArticle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQueryTokens_FullPipeline(t *testing.T) {
	got := QueryTokens("تلاوات الشيخ المنشاوي النادرة")
	if len(got) != 1 {
		t.Fatalf("QueryTokens = %v, want a single name token", got)
	}
	if got[0] != Normalize("منشاوي") {
		t.Errorf("token = %q, want %q", got[0], Normalize("منشاوي"))
	}
}

func TestQueryTokens_EmptyInput(t *testing.T) {
	if got := QueryTokens("   "); got != nil {
		t.Errorf("QueryTokens on whitespace = %v, want nil", got)
	}
}

func TestPatternMatches(t *testing.T) {
	if !PatternMatches("", "anything") {
		t.Error("empty pattern should match everything")
	}
	if PatternMatches("abcd", "abc") {
		t.Error("pattern longer than target should not match")
	}
	if !PatternMatches("b_d", "abcde") {
		t.Error("wildcard should match any single rune")
	}
	if PatternMatches("b_f", "abcde") {
		t.Error("non-wildcard runes must still match exactly")
	}
}
