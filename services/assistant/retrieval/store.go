// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval defines the catalog retrieval contracts and the tool
// dispatcher that routes a resolved action to them. The data store behind
// the CatalogStore interface is a collaborator: this package never talks
// to a database directly.
package retrieval

import (
	"context"
	"fmt"
	"time"
)

// Reciter is a catalog entity: one reciter with an optional biography
// and optional life dates. Empty string means "not recorded", which the
// grounding layer renders as an explicit "unavailable".
type Reciter struct {
	ID        int64
	Name      string
	BirthDate string
	DeathDate string
	Bio       string

	// RecordingCount is the total recordings attributed to the reciter,
	// independent of any listing cap.
	RecordingCount int
}

// Recording is one recitation entry. SurahNumber 0 means the recording
// is not attributed to a single chapter. AyahFrom/AyahTo describe the
// declared verse coverage within the chapter; both 0 means whole chapter.
type Recording struct {
	ID          int64
	ReciterID   int64
	ReciterName string
	Title       string
	SurahNumber int
	AyahFrom    int
	AyahTo      int
	AudioURL    string
	CreatedAt   time.Time
}

// Playable reports whether the recording has a resolvable audio asset.
// Records without one are filtered out of every handler's result.
func (r Recording) Playable() bool {
	return r.AudioURL != ""
}

// CoversAyah reports whether the recording's declared coverage spans the
// given verse of its chapter. Zero coverage bounds mean whole chapter.
func (r Recording) CoversAyah(surah, ayah int) bool {
	if r.SurahNumber != surah {
		return false
	}
	if r.AyahFrom == 0 && r.AyahTo == 0 {
		return true
	}
	return r.AyahFrom <= ayah && ayah <= r.AyahTo
}

// DisplayTitle derives the title shown for a recording.
//
// Description:
//
//	Explicit title if present, else a composed chapter label, else a
//	generic label. Grounding text and any listing surface must use this
//	same derivation so the model never sees two names for one record.
func DisplayTitle(r Recording) string {
	if r.Title != "" {
		return r.Title
	}
	if r.SurahNumber > 0 {
		if name, ok := SurahName(r.SurahNumber); ok {
			return "سورة " + name
		}
		return fmt.Sprintf("سورة %d", r.SurahNumber)
	}
	return "تلاوة"
}

// Verse is one indexed verse with its normalized text.
type Verse struct {
	SurahNumber int
	AyahNumber  int
	Text        string
}

// CatalogStore is the retrieval collaborator contract.
//
// Description:
//
//	Backed by the excluded production data store in deployment and by
//	services/store/memory in tests. Name search operates on match
//	patterns produced by arabic.MatchPattern: every pattern token must
//	match the stored normalized name, wildcard-aware (LIKE semantics).
//	Listings are bounded and ordered most-recent-first; verse search is
//	first-match in (surah, ayah) order, which is stable by construction.
//
// Thread Safety: Implementations must be safe for concurrent use.
type CatalogStore interface {
	// SearchReciters returns reciters whose normalized name matches all
	// pattern tokens, capped at limit.
	SearchReciters(ctx context.Context, patterns []string, limit int) ([]Reciter, error)

	// GetReciter fetches one reciter by id. Returns (nil, nil) when the
	// id is unknown.
	GetReciter(ctx context.Context, id int64) (*Reciter, error)

	// ListReciters returns up to limit reciters, most recently added first.
	ListReciters(ctx context.Context, limit int) ([]Reciter, error)

	// RecordingsByReciter returns up to limit recordings for a reciter,
	// most recent first.
	RecordingsByReciter(ctx context.Context, reciterID int64, limit int) ([]Recording, error)

	// RecordingsBySurah returns up to limit recordings of a chapter,
	// most recent first.
	RecordingsBySurah(ctx context.Context, surah int, limit int) ([]Recording, error)

	// RecordingsCoveringAyah returns up to limit recordings whose
	// declared coverage spans the verse, most recent first.
	RecordingsCoveringAyah(ctx context.Context, surah, ayah int, limit int) ([]Recording, error)

	// FeaturedRecordings returns up to limit featured recordings, most
	// recent first.
	FeaturedRecordings(ctx context.Context, limit int) ([]Recording, error)

	// FindVerse returns the first indexed verse whose normalized text
	// contains the normalized snippet, or (nil, nil) when none does.
	FindVerse(ctx context.Context, normalizedSnippet string) (*Verse, error)
}
