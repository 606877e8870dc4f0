// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package arabic implements the deterministic text normalization used by
// both retrieval and matching. Normalization folds the letter variants
// that make casual Arabic spelling inconsistent (hamza forms, ta-marbuta,
// alef-maksura), strips diacritics and tatweel, and collapses whitespace.
//
// All functions are pure: the same input always yields the same output,
// and Normalize is idempotent (Normalize(Normalize(s)) == Normalize(s)).
package arabic

import (
	"strings"
)

// Wildcard is the single-rune wildcard used in match patterns. It is
// deliberately the SQL LIKE single-character wildcard so patterns can be
// handed to a LIKE query unchanged.
const Wildcard = '_'

// foldRune maps a single rune through the normalization rules.
// Returns -1 for runes that are removed entirely.
func foldRune(r rune) rune {
	switch {
	// (1) Tashkeel, tanween, and the small superscript alef.
	case r >= 0x064B && r <= 0x065F, r == 0x0670:
		return -1
	// Quranic annotation marks (small high signs, sajdah marks and the
	// waqf family) appear in indexed verse text and never in user input.
	case r >= 0x06D6 && r <= 0x06ED:
		return -1
	// (2) Hamza-bearing and plain alef forms fold to bare alef.
	case r == 'أ', r == 'إ', r == 'آ', r == 'ٱ':
		return 'ا'
	// (3) Hamza on waw or ya folds to the bare hamza letter.
	case r == 'ؤ', r == 'ئ':
		return 'ء'
	// (4) Alef-maksura and ya collapse to one form.
	case r == 'ى':
		return 'ي'
	// (5) Ta-marbuta collapses to ha.
	case r == 'ة':
		return 'ه'
	// (6) Tatweel carries no value.
	case r == 0x0640:
		return -1
	}
	return r
}

// Normalize folds letter variants, strips diacritics and tatweel, and
// collapses runs of whitespace to single spaces.
//
// Description:
//
//	Applies the folding rules in fixed order over every rune, then
//	re-tokenizes on whitespace. Safe on empty input (returns "").
//	Idempotent: every output rune is a fixed point of the fold table.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded := strings.Map(foldRune, s)
	return strings.Join(strings.Fields(folded), " ")
}

// MatchPattern produces the fuzzy matching form of a normalized string.
//
// Description:
//
//	Beyond Normalize, the ya/alef-maksura and ha/ta-marbuta positions
//	become single-rune wildcards. Historical spellings disagree on these
//	letters even after folding (a name stored with a trailing ya may be
//	queried with alef-maksura and vice versa), so matching treats them as
//	"any one letter". The result is for matching only, never storage.
func MatchPattern(s string) string {
	norm := Normalize(s)
	if norm == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r == 'ي' || r == 'ه' {
			return Wildcard
		}
		return r
	}, norm)
}

// stopwords are generic query nouns that carry no discriminating power
// against stored reciter names. Keys are normalized forms.
var stopwords = func() map[string]struct{} {
	words := []string{
		"تلاوة", "تلاوات", "تسجيل", "تسجيلات",
		"سورة", "سور", "آية", "آيات",
		"قراءة", "قراءات", "تلاوه",
		"الشيخ", "شيخ", "القارئ", "قارئ", "المقرئ", "مقرئ",
		"نادرة", "نادر", "النادرة",
		"مجود", "مجودة", "مرتل", "مرتلة", "ترتيل", "تجويد",
		"بصوت", "صوت",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[Normalize(w)] = struct{}{}
	}
	return set
}()

// StripStopwords removes generic nouns from a normalized token list.
//
// Description:
//
//	Tokens must already be normalized. If removal would empty the list,
//	the original tokens are returned unchanged: a query that is nothing
//	but stopwords still has to search on something.
func StripStopwords(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := stopwords[tok]; !ok {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return tokens
	}
	return kept
}

// StripArticle removes a leading definite article from a token.
//
// Description:
//
//	Stored names usually omit the article ("منشاوي" not "المنشاوي"), so
//	stripping it from query tokens improves recall. The prefix is only
//	removed when the token is strictly longer than the article itself.
func StripArticle(token string) string {
	const article = "ال"
	if strings.HasPrefix(token, article) && len([]rune(token)) > len([]rune(article)) {
		return strings.TrimPrefix(token, article)
	}
	return token
}

// QueryTokens turns raw user input into the tokens used for name matching.
//
// Description:
//
//	Normalizes, tokenizes, strips stopwords (with the never-empty
//	fallback) and then strips the definite article from each remaining
//	token. Returns nil for input that normalizes to nothing.
func QueryTokens(s string) []string {
	norm := Normalize(s)
	if norm == "" {
		return nil
	}
	tokens := StripStopwords(strings.Fields(norm))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, StripArticle(tok))
	}
	return out
}

// PatternMatches reports whether target contains pattern, treating
// Wildcard runes in pattern as "any single rune".
//
// Description:
//
//	This is the in-process equivalent of a LIKE '%pattern%' match, so
//	the in-memory store and SQL-backed stores agree on semantics.
//	An empty pattern matches everything.
func PatternMatches(pattern, target string) bool {
	p := []rune(pattern)
	t := []rune(target)
	if len(p) == 0 {
		return true
	}
	if len(p) > len(t) {
		return false
	}
	for start := 0; start+len(p) <= len(t); start++ {
		ok := true
		for i, pr := range p {
			if pr != Wildcard && pr != t[start+i] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
