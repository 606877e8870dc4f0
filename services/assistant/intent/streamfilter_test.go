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

// runFilter feeds every chunk through one filter and joins the output,
// including the flush.
func runFilter(chunks ...string) string {
	var f TagFilter
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(f.Feed(c))
	}
	b.WriteString(f.Flush())
	return b.String()
}

func TestTagFilter_PlainTextPassesThrough(t *testing.T) {
	var f TagFilter
	if got := f.Feed("أهلا "); got != "أهلا " {
		t.Errorf("Feed = %q, want %q", got, "أهلا ")
	}
	if got := f.Feed("بك"); got != "بك" {
		t.Errorf("Feed = %q, want %q", got, "بك")
	}
	if got := f.Flush(); got != "" {
		t.Errorf("Flush = %q, want empty", got)
	}
}

func TestTagFilter_TagInSingleChunk(t *testing.T) {
	got := runFilter("تفضل ", "[SEARCH_RECITER: المنشاوي]", " هل تريد المزيد؟")
	if strings.Contains(got, "[") {
		t.Errorf("output still carries a tag: %q", got)
	}
	if !strings.Contains(got, "تفضل") || !strings.Contains(got, "هل تريد المزيد؟") {
		t.Errorf("surrounding text lost: %q", got)
	}
}

func TestTagFilter_TagStraddlesChunks(t *testing.T) {
	got := runFilter("هذه ", "[SEARCH_", "AYAH: قل هو الله احد]", " تلاوة")
	if got != "هذه  تلاوة" {
		t.Errorf("output = %q, want %q", got, "هذه  تلاوة")
	}
}

func TestTagFilter_TagSplitAtEveryByte(t *testing.T) {
	text := "قبل [GET_RECITATIONS: 17] بعد"
	for cut := 1; cut < len(text); cut++ {
		got := runFilter(text[:cut], text[cut:])
		if got != "قبل  بعد" {
			t.Errorf("cut at %d: output = %q, want %q", cut, got, "قبل  بعد")
		}
	}
}

func TestTagFilter_NonTagBracketReleased(t *testing.T) {
	got := runFilter("[ملاحظة] هذا قوس عادي")
	if got != "[ملاحظة] هذا قوس عادي" {
		t.Errorf("output = %q, want input unchanged", got)
	}
}

func TestTagFilter_FalseKeywordPrefixReleased(t *testing.T) {
	// Looks like a tag opening but the keyword never completes.
	got := runFilter("انظر [SEARCH هنا")
	if got != "انظر [SEARCH هنا" {
		t.Errorf("output = %q, want input unchanged", got)
	}
}

func TestTagFilter_UnterminatedTagDroppedAtFlush(t *testing.T) {
	got := runFilter("النتيجة ", "[SEARCH_SURAH: الكهف")
	if got != "النتيجة " {
		t.Errorf("output = %q, want %q", got, "النتيجة ")
	}
}
