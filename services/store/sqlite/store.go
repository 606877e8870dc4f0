// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sqlite is the SQLite-backed catalog store. Normalized name
// and verse columns are maintained on write, so LIKE matching against
// the match patterns needs no SQL-side normalization.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	_ "modernc.org/sqlite"

	"github.com/telawat/assistant/services/assistant/arabic"
	"github.com/telawat/assistant/services/assistant/retrieval"
)

const schema = `
CREATE TABLE IF NOT EXISTS reciters (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	birth_date TEXT NOT NULL DEFAULT '',
	death_date TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reciters_name_normalized ON reciters(name_normalized);

CREATE TABLE IF NOT EXISTS recordings (
	id INTEGER PRIMARY KEY,
	reciter_id INTEGER NOT NULL REFERENCES reciters(id),
	title TEXT NOT NULL DEFAULT '',
	surah_number INTEGER NOT NULL DEFAULT 0,
	ayah_from INTEGER NOT NULL DEFAULT 0,
	ayah_to INTEGER NOT NULL DEFAULT 0,
	audio_url TEXT NOT NULL DEFAULT '',
	featured INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recordings_reciter ON recordings(reciter_id);
CREATE INDEX IF NOT EXISTS idx_recordings_surah ON recordings(surah_number);

CREATE TABLE IF NOT EXISTS verses (
	surah_number INTEGER NOT NULL,
	ayah_number INTEGER NOT NULL,
	text TEXT NOT NULL,
	text_normalized TEXT NOT NULL,
	PRIMARY KEY (surah_number, ayah_number)
);
`

// Store implements retrieval.CatalogStore over a SQLite database.
//
// Thread Safety: Safe for concurrent use; database/sql pools
// connections internally.
type Store struct {
	db *sql.DB
}

// Open opens (and bootstraps) a catalog database. Use ":memory:" for
// an ephemeral store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", dsn, err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// table-lock errors under concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: bootstrapping schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddReciter inserts or replaces a reciter row.
func (s *Store) AddReciter(ctx context.Context, r retrieval.Reciter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reciters (id, name, name_normalized, birth_date, death_date, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, arabic.Normalize(r.Name), r.BirthDate, r.DeathDate, r.Bio, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite: inserting reciter %d: %w", r.ID, err)
	}
	return nil
}

// AddRecording inserts a recording row.
func (s *Store) AddRecording(ctx context.Context, r retrieval.Recording, featured bool) error {
	f := 0
	if featured {
		f = 1
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO recordings (id, reciter_id, title, surah_number, ayah_from, ayah_to, audio_url, featured, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ReciterID, r.Title, r.SurahNumber, r.AyahFrom, r.AyahTo, r.AudioURL, f, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite: inserting recording %d: %w", r.ID, err)
	}
	return nil
}

// AddVerse indexes a verse; the normalized column is computed here.
func (s *Store) AddVerse(ctx context.Context, v retrieval.Verse) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO verses (surah_number, ayah_number, text, text_normalized)
		VALUES (?, ?, ?, ?)`,
		v.SurahNumber, v.AyahNumber, v.Text, arabic.Normalize(v.Text))
	if err != nil {
		return fmt.Errorf("sqlite: inserting verse %d:%d: %w", v.SurahNumber, v.AyahNumber, err)
	}
	return nil
}

// likeEscape prepares a match pattern for a LIKE ... ESCAPE '\' clause:
// literal % and \ are escaped while the single-rune wildcard passes
// through unchanged.
func likeEscape(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	return strings.ReplaceAll(pattern, `%`, `\%`)
}

func (s *Store) SearchReciters(ctx context.Context, patterns []string, limit int) ([]retrieval.Reciter, error) {
	if len(patterns) == 0 || limit <= 0 {
		return nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, p := range patterns {
		clauses = append(clauses, `name_normalized LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(p)+"%")
	}
	// Overfetch so the fuzzy re-rank has candidates to order before the
	// cap is applied.
	args = append(args, limit*4)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, name_normalized, birth_date, death_date, bio,
		       (SELECT COUNT(*) FROM recordings WHERE recordings.reciter_id = reciters.id)
		FROM reciters
		WHERE `+strings.Join(clauses, " AND ")+`
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching reciters: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		reciter    retrieval.Reciter
		normalized string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.reciter.ID, &c.reciter.Name, &c.normalized,
			&c.reciter.BirthDate, &c.reciter.DeathDate, &c.reciter.Bio,
			&c.reciter.RecordingCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reciter: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: searching reciters: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Re-rank by fuzzy score against the query so the closest name
	// comes out first. Wildcards are stripped for ranking; they only
	// matter for the LIKE filter above.
	query := strings.ReplaceAll(strings.Join(patterns, " "), string(arabic.Wildcard), "")
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.normalized
	}
	out := make([]retrieval.Reciter, 0, limit)
	seen := make(map[int]bool, len(candidates))
	for _, m := range fuzzy.Find(query, names) {
		seen[m.Index] = true
		out = append(out, candidates[m.Index].reciter)
		if len(out) == limit {
			return out, nil
		}
	}
	// Candidates the fuzzy pass scored zero for still matched the LIKE
	// filter; keep them after the ranked ones.
	for i, c := range candidates {
		if !seen[i] {
			out = append(out, c.reciter)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) GetReciter(ctx context.Context, id int64) (*retrieval.Reciter, error) {
	var r retrieval.Reciter
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, birth_date, death_date, bio,
		       (SELECT COUNT(*) FROM recordings WHERE recordings.reciter_id = reciters.id)
		FROM reciters WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.BirthDate, &r.DeathDate, &r.Bio, &r.RecordingCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching reciter %d: %w", id, err)
	}
	return &r, nil
}

func (s *Store) ListReciters(ctx context.Context, limit int) ([]retrieval.Reciter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, birth_date, death_date, bio,
		       (SELECT COUNT(*) FROM recordings WHERE recordings.reciter_id = reciters.id)
		FROM reciters ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reciters: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Reciter
	for rows.Next() {
		var r retrieval.Reciter
		if err := rows.Scan(&r.ID, &r.Name, &r.BirthDate, &r.DeathDate, &r.Bio, &r.RecordingCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning reciter: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const recordingColumns = `
	recordings.id, recordings.reciter_id, reciters.name, recordings.title,
	recordings.surah_number, recordings.ayah_from, recordings.ayah_to,
	recordings.audio_url, recordings.created_at`

func (s *Store) queryRecordings(ctx context.Context, where string, args ...any) ([]retrieval.Recording, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordingColumns+`
		FROM recordings JOIN reciters ON reciters.id = recordings.reciter_id
		WHERE `+where+`
		ORDER BY recordings.created_at DESC, recordings.id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying recordings: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Recording
	for rows.Next() {
		var (
			r  retrieval.Recording
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.ReciterID, &r.ReciterName, &r.Title,
			&r.SurahNumber, &r.AyahFrom, &r.AyahTo, &r.AudioURL, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scanning recording: %w", err)
		}
		r.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RecordingsByReciter(ctx context.Context, reciterID int64, limit int) ([]retrieval.Recording, error) {
	return s.queryRecordings(ctx, "recordings.reciter_id = ?", reciterID, limit)
}

func (s *Store) RecordingsBySurah(ctx context.Context, surah, limit int) ([]retrieval.Recording, error) {
	return s.queryRecordings(ctx, "recordings.surah_number = ?", surah, limit)
}

func (s *Store) RecordingsCoveringAyah(ctx context.Context, surah, ayah, limit int) ([]retrieval.Recording, error) {
	return s.queryRecordings(ctx, `
		recordings.surah_number = ?
		AND ((recordings.ayah_from = 0 AND recordings.ayah_to = 0)
		     OR (recordings.ayah_from <= ? AND ? <= recordings.ayah_to))`,
		surah, ayah, ayah, limit)
}

func (s *Store) FeaturedRecordings(ctx context.Context, limit int) ([]retrieval.Recording, error) {
	return s.queryRecordings(ctx, "recordings.featured = 1", limit)
}

func (s *Store) FindVerse(ctx context.Context, normalizedSnippet string) (*retrieval.Verse, error) {
	if normalizedSnippet == "" {
		return nil, nil
	}
	snippet := strings.ReplaceAll(normalizedSnippet, `\`, `\\`)
	snippet = strings.ReplaceAll(snippet, `%`, `\%`)
	snippet = strings.ReplaceAll(snippet, `_`, `\_`)

	var v retrieval.Verse
	err := s.db.QueryRowContext(ctx, `
		SELECT surah_number, ayah_number, text
		FROM verses
		WHERE text_normalized LIKE ? ESCAPE '\'
		ORDER BY surah_number, ayah_number
		LIMIT 1`, "%"+snippet+"%").
		Scan(&v.SurahNumber, &v.AyahNumber, &v.Text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching verses: %w", err)
	}
	return &v, nil
}
