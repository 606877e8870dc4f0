// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telawat/assistant/services/assistant/arabic"
	"github.com/telawat/assistant/services/assistant/retrieval"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.AddReciter(retrieval.Reciter{ID: 1, Name: "محمد صديق المنشاوي", BirthDate: "1920", DeathDate: "1969"})
	s.AddReciter(retrieval.Reciter{ID: 2, Name: "عبد الباسط عبد الصمد"})
	s.AddReciter(retrieval.Reciter{ID: 3, Name: "محمود خليل الحصري"})

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.AddRecording(retrieval.Recording{
		ID: 10, ReciterID: 1, ReciterName: "محمد صديق المنشاوي",
		SurahNumber: 18, AudioURL: "https://cdn.example/10.mp3",
		CreatedAt: base,
	}, true)
	s.AddRecording(retrieval.Recording{
		ID: 11, ReciterID: 1, ReciterName: "محمد صديق المنشاوي",
		SurahNumber: 2, AyahFrom: 250, AyahTo: 260,
		AudioURL: "https://cdn.example/11.mp3",
		CreatedAt: base.Add(24 * time.Hour),
	}, false)
	s.AddRecording(retrieval.Recording{
		ID: 12, ReciterID: 2, ReciterName: "عبد الباسط عبد الصمد",
		SurahNumber: 2, AudioURL: "https://cdn.example/12.mp3",
		CreatedAt: base.Add(48 * time.Hour),
	}, true)

	s.AddVerse(retrieval.Verse{SurahNumber: 2, AyahNumber: 255, Text: "اللَّهُ لَا إِلَٰهَ إِلَّا هُوَ الْحَيُّ الْقَيُّومُ"})
	s.AddVerse(retrieval.Verse{SurahNumber: 112, AyahNumber: 1, Text: "قُلْ هُوَ اللَّهُ أَحَدٌ"})
	return s
}

func TestSearchReciters_WildcardMatching(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	// The ي in the query folds to a wildcard, so spelling variants of
	// the stored name still match.
	got, err := s.SearchReciters(ctx, []string{arabic.MatchPattern(arabic.Normalize("المنشاوى"))}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestSearchReciters_AllPatternsMustMatch(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	got, err := s.SearchReciters(ctx, []string{
		arabic.MatchPattern("محمد"),
		arabic.MatchPattern("صديق"),
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got, err = s.SearchReciters(ctx, []string{
		arabic.MatchPattern("محمد"),
		arabic.MatchPattern("باسط"),
	}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchReciters_EmptyPatternsMatchNothing(t *testing.T) {
	s := seedStore(t)
	got, err := s.SearchReciters(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetReciter(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	r, err := s.GetReciter(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "عبد الباسط عبد الصمد", r.Name)

	r, err = s.GetReciter(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestRecordingCountTracksInserts(t *testing.T) {
	s := seedStore(t)
	r, err := s.GetReciter(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 2, r.RecordingCount)
}

func TestRecordingsByReciter_MostRecentFirst(t *testing.T) {
	s := seedStore(t)
	got, err := s.RecordingsByReciter(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(11), got[0].ID)
	assert.Equal(t, int64(10), got[1].ID)
}

func TestRecordingsCoveringAyah(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	// Whole-chapter recordings cover every verse; ranged ones only
	// their declared span.
	got, err := s.RecordingsCoveringAyah(ctx, 2, 255, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.RecordingsCoveringAyah(ctx, 2, 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].ID)
}

func TestFeaturedRecordings(t *testing.T) {
	s := seedStore(t)
	got, err := s.FeaturedRecordings(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(12), got[0].ID)
	assert.Equal(t, int64(10), got[1].ID)
}

func TestListReciters_NewestFirstAndCapped(t *testing.T) {
	s := seedStore(t)
	got, err := s.ListReciters(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestFindVerse_NormalizedContains(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	// Stored text carries diacritics; the snippet does not.
	v, err := s.FindVerse(ctx, arabic.Normalize("الحي القيوم"))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 2, v.SurahNumber)
	assert.Equal(t, 255, v.AyahNumber)

	v, err = s.FindVerse(ctx, arabic.Normalize("نص غير موجود"))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = s.FindVerse(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, v)
}
