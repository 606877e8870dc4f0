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

import "strings"

// tagKeywords is the closed tag vocabulary, used to decide whether a
// bracket opened mid-stream can still become a well-formed tag.
var tagKeywords = []string{
	"SEARCH_RECITER",
	"SEARCH_AYAH",
	"SEARCH_SURAH",
	"GET_RECITATIONS",
	"GET_INFO",
	"GET_FEATURED",
	"LIST_RECITERS",
}

// TagFilter removes action tags from streamed model output incrementally.
//
// Description:
//
//	A tag can straddle chunk boundaries, so stripping each chunk in
//	isolation is not enough. Feed withholds any trailing text that is
//	still a viable tag prefix until a later chunk either completes the
//	tag (it is then dropped) or rules it out (the text is then
//	released). Ordinary brackets that cannot open a tag pass through
//	unchanged.
//
// Thread Safety: Not safe for concurrent use; one filter per stream.
type TagFilter struct {
	pending string
}

// Feed ingests the next chunk and returns the text now safe to deliver.
// The returned string may be empty while a candidate tag is pending.
func (f *TagFilter) Feed(chunk string) string {
	buf := StripActionTags(f.pending + chunk)

	hold := len(buf)
	for i := 0; i < len(buf); i++ {
		if buf[i] == '[' && couldBeTag(buf[i:]) {
			hold = i
			break
		}
	}
	f.pending = buf[hold:]
	return buf[:hold]
}

// Flush ends the stream. Withheld text that turned out not to be a tag
// is returned; a tag left unterminated by the model is dropped.
func (f *TagFilter) Flush() string {
	buf := StripActionTags(f.pending)
	f.pending = ""
	if buf != "" && buf[0] == '[' && couldBeTag(buf) {
		return ""
	}
	return buf
}

// couldBeTag reports whether s, starting at an opening bracket, is a
// prefix that a later chunk could still extend into a well-formed tag.
func couldBeTag(s string) bool {
	rest := strings.TrimLeft(s[1:], " \t\r\n")

	i := 0
	for i < len(rest) && (rest[i] == '_' || (rest[i] >= 'A' && rest[i] <= 'Z')) {
		i++
	}
	word, tail := rest[:i], rest[i:]

	prefix, exact := false, false
	for _, kw := range tagKeywords {
		if strings.HasPrefix(kw, word) {
			prefix = true
		}
		if word == kw {
			exact = true
		}
	}
	if !prefix && !exact {
		return false
	}
	if tail == "" {
		return true
	}
	// The keyword token has ended; only an exact keyword can continue.
	if !exact {
		return false
	}
	tail = strings.TrimLeft(tail, " \t\r\n")
	if tail == "" {
		return true
	}
	if tail[0] != ':' {
		return false
	}
	// A bracket inside the body would already have failed the grammar.
	return !strings.ContainsAny(tail, "[]")
}
