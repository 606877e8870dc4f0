// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package intent turns a sanitized conversation into exactly one retrieval
// Action. The action protocol is a single bracketed tag embedded in the
// model's free-text reply; parsing is deliberately permissive and total;
// anything that does not parse is the None action, never an error.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// ActionKind is the closed vocabulary of retrieval intents.
type ActionKind string

const (
	// ActionNone means no retrieval is needed; reply conversationally.
	ActionNone ActionKind = "none"

	// ActionSearchReciter searches reciters by (fuzzy) name.
	ActionSearchReciter ActionKind = "search_reciter"

	// ActionSearchAyah locates recordings covering a quoted verse.
	ActionSearchAyah ActionKind = "search_ayah"

	// ActionSearchSurah lists recordings of a chapter named in the query.
	ActionSearchSurah ActionKind = "search_surah"

	// ActionGetRecitations lists a known reciter's recordings.
	ActionGetRecitations ActionKind = "get_recitations"

	// ActionGetInfo fetches a known reciter's profile.
	ActionGetInfo ActionKind = "get_info"

	// ActionGetFeatured lists the most recent featured recordings.
	ActionGetFeatured ActionKind = "get_featured"

	// ActionListReciters lists the reciter catalog.
	ActionListReciters ActionKind = "list_reciters"
)

// Action is the single resolved retrieval intent for one request.
//
// Description:
//
//	Exactly one Action is resolved per request, never batched or
//	chained. Query carries the search text for the search kinds;
//	ReciterHint is the optional second argument of an ayah search;
//	ReciterID is set for the by-id kinds.
type Action struct {
	Kind        ActionKind
	Query       string
	ReciterHint string
	ReciterID   int64
}

// None is the zero action: reply conversationally, no retrieval.
func None() Action { return Action{Kind: ActionNone} }

// tagPattern matches one bracketed action tag anywhere in free text.
// The body (after the colon) is everything up to the closing bracket.
var tagPattern = regexp.MustCompile(
	`\[\s*(SEARCH_RECITER|SEARCH_AYAH|SEARCH_SURAH|GET_RECITATIONS|GET_INFO|GET_FEATURED|LIST_RECITERS)\s*(?::([^\]\[]*))?\]`)

// ParseAction extracts the first well-formed action tag from raw model
// output.
//
// Description:
//
//	Scans raw for bracketed tags in order and returns the first one whose
//	arguments validate (search kinds need a non-empty body, id kinds need
//	an integer body). Returns (None(), false) when no tag validates.
//	This is the system's only guard against a non-compliant model reply,
//	so it must be total: any input yields a valid Action, never a panic
//	or an error.
//
// Inputs:
//   - raw: The model's raw reply text. May be empty.
//
// Outputs:
//   - Action: The parsed action, or None().
//   - bool: True when a well-formed tag was found.
func ParseAction(raw string) (Action, bool) {
	for _, m := range tagPattern.FindAllStringSubmatch(raw, -1) {
		kind := m[1]
		body := strings.TrimSpace(m[2])

		switch kind {
		case "SEARCH_RECITER":
			if body != "" {
				return Action{Kind: ActionSearchReciter, Query: body}, true
			}
		case "SEARCH_AYAH":
			snippet, hint := splitAyahBody(body)
			if snippet != "" {
				return Action{Kind: ActionSearchAyah, Query: snippet, ReciterHint: hint}, true
			}
		case "SEARCH_SURAH":
			if body != "" {
				return Action{Kind: ActionSearchSurah, Query: body}, true
			}
		case "GET_RECITATIONS":
			if id, err := strconv.ParseInt(body, 10, 64); err == nil && id > 0 {
				return Action{Kind: ActionGetRecitations, ReciterID: id}, true
			}
		case "GET_INFO":
			if id, err := strconv.ParseInt(body, 10, 64); err == nil && id > 0 {
				return Action{Kind: ActionGetInfo, ReciterID: id}, true
			}
		case "GET_FEATURED":
			if body == "" {
				return Action{Kind: ActionGetFeatured}, true
			}
		case "LIST_RECITERS":
			if body == "" {
				return Action{Kind: ActionListReciters}, true
			}
		}
		// Malformed body: keep scanning, a later tag may validate.
	}
	return None(), false
}

// splitAyahBody splits "snippet | reciter-hint" on the first pipe.
// The hint part is optional.
func splitAyahBody(body string) (snippet, hint string) {
	parts := strings.SplitN(body, "|", 2)
	snippet = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		hint = strings.TrimSpace(parts[1])
	}
	return snippet, hint
}

// StripActionTags removes every action tag from text.
//
// Description:
//
//	Used by the sanitizer as a defense against the model echoing its own
//	prior tool call into the next turn's context, and by TagFilter to
//	keep tags out of the user-visible reply.
func StripActionTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}
