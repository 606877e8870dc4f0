// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory is an in-memory catalog store. It backs tests and
// local development runs where no database is configured; semantics
// match the sqlite store (wildcard name matching, most-recent-first
// listings, stable verse order).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/telawat/assistant/services/assistant/arabic"
	"github.com/telawat/assistant/services/assistant/retrieval"
)

// Store implements retrieval.CatalogStore over slices.
//
// Thread Safety: Safe for concurrent use; a single RWMutex guards all
// state.
type Store struct {
	mu         sync.RWMutex
	reciters   []retrieval.Reciter
	recordings []retrieval.Recording
	verses     []verseRow
	featured   map[int64]bool
}

type verseRow struct {
	verse      retrieval.Verse
	normalized string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{featured: make(map[int64]bool)}
}

// AddReciter inserts or replaces a reciter.
func (s *Store) AddReciter(r retrieval.Reciter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reciters {
		if s.reciters[i].ID == r.ID {
			s.reciters[i] = r
			return
		}
	}
	s.reciters = append(s.reciters, r)
}

// AddRecording inserts a recording. featured marks it for the featured
// listing.
func (s *Store) AddRecording(r retrieval.Recording, featured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = append(s.recordings, r)
	if featured {
		s.featured[r.ID] = true
	}
	for i := range s.reciters {
		if s.reciters[i].ID == r.ReciterID {
			s.reciters[i].RecordingCount++
		}
	}
}

// AddVerse indexes a verse; text is normalized on insert.
func (s *Store) AddVerse(v retrieval.Verse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verses = append(s.verses, verseRow{verse: v, normalized: arabic.Normalize(v.Text)})
}

func (s *Store) SearchReciters(_ context.Context, patterns []string, limit int) ([]retrieval.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []retrieval.Reciter
	for _, r := range s.reciters {
		name := arabic.Normalize(r.Name)
		ok := len(patterns) > 0
		for _, p := range patterns {
			if !arabic.PatternMatches(p, name) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) GetReciter(_ context.Context, id int64) (*retrieval.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reciters {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListReciters(_ context.Context, limit int) ([]retrieval.Reciter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]retrieval.Reciter, len(s.reciters))
	copy(out, s.reciters)
	// Insertion order stands in for catalog recency: newest last.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecordingsByReciter(_ context.Context, reciterID int64, limit int) ([]retrieval.Recording, error) {
	return s.selectRecordings(func(r retrieval.Recording) bool {
		return r.ReciterID == reciterID
	}, limit), nil
}

func (s *Store) RecordingsBySurah(_ context.Context, surah int, limit int) ([]retrieval.Recording, error) {
	return s.selectRecordings(func(r retrieval.Recording) bool {
		return r.SurahNumber == surah
	}, limit), nil
}

func (s *Store) RecordingsCoveringAyah(_ context.Context, surah, ayah int, limit int) ([]retrieval.Recording, error) {
	return s.selectRecordings(func(r retrieval.Recording) bool {
		return r.CoversAyah(surah, ayah)
	}, limit), nil
}

func (s *Store) FeaturedRecordings(_ context.Context, limit int) ([]retrieval.Recording, error) {
	return s.selectRecordings(func(r retrieval.Recording) bool {
		return s.featured[r.ID]
	}, limit), nil
}

func (s *Store) FindVerse(_ context.Context, normalizedSnippet string) (*retrieval.Verse, error) {
	if normalizedSnippet == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]verseRow, len(s.verses))
	copy(rows, s.verses)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].verse, rows[j].verse
		if a.SurahNumber != b.SurahNumber {
			return a.SurahNumber < b.SurahNumber
		}
		return a.AyahNumber < b.AyahNumber
	})
	for _, row := range rows {
		if strings.Contains(row.normalized, normalizedSnippet) {
			out := row.verse
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) selectRecordings(keep func(retrieval.Recording) bool, limit int) []retrieval.Recording {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []retrieval.Recording
	for _, r := range s.recordings {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
