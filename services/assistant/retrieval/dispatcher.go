// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/telawat/assistant/services/assistant/arabic"
	"github.com/telawat/assistant/services/assistant/intent"
)

// Classification describes the cardinality of a dispatch outcome. The
// grounding layer branches on it.
type Classification string

const (
	ClassEmpty    Classification = "empty"
	ClassSingle   Classification = "single"
	ClassMultiple Classification = "multiple"
)

// Limits are the per-handler result caps. Every listing is bounded so
// the grounding context stays small enough to stream against.
type Limits struct {
	NameSearch        int
	ReciterRecordings int
	SurahRecordings   int
	AyahRecordings    int
	Featured          int
	ListReciters      int
}

// DefaultLimits returns the production caps.
func DefaultLimits() Limits {
	return Limits{
		NameSearch:        5,
		ReciterRecordings: 20,
		SurahRecordings:   10,
		AyahRecordings:    20,
		Featured:          10,
		ListReciters:      20,
	}
}

// Result is the structured outcome of one dispatched action. Which
// fields are populated depends on the action kind; Classification is
// always set.
type Result struct {
	Action         intent.Action
	Classification Classification

	Reciters   []Reciter
	Reciter    *Reciter
	Recordings []Recording

	SurahNumber int
	SurahName   string
	AyahNumber  int

	// HintMissed is set on verse lookups when the caller named a reciter
	// but no recording of the verse by that reciter exists.
	HintMissed bool

	// Partial is set when a store call failed and the result degraded
	// instead of aborting the turn.
	Partial bool
}

// Dispatcher routes a resolved action to the catalog store.
//
// Description:
//
//	Dispatch never returns an error: store failures are logged, flagged
//	via Result.Partial, and degrade to smaller results so the assistant
//	can still answer the turn. Unplayable recordings are filtered out of
//	every listing before caps apply.
//
// Thread Safety: Safe for concurrent use; all state is read-only after
// construction.
type Dispatcher struct {
	store                Store
	limits               Limits
	logger               *slog.Logger
	fallbackAlternatives bool
}

// Store is the subset of the catalog the dispatcher needs. It is
// satisfied by CatalogStore.
type Store = CatalogStore

// NewDispatcher constructs a Dispatcher. fallbackAlternatives controls
// whether a missed reciter hint on a verse lookup still surfaces other
// reciters' recordings of the verse.
func NewDispatcher(store Store, limits Limits, logger *slog.Logger, fallbackAlternatives bool) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:                store,
		limits:               limits,
		logger:               logger,
		fallbackAlternatives: fallbackAlternatives,
	}
}

// Dispatch executes one action against the catalog.
func (d *Dispatcher) Dispatch(ctx context.Context, action intent.Action) Result {
	switch action.Kind {
	case intent.ActionSearchReciter:
		return d.searchReciter(ctx, action)
	case intent.ActionSearchAyah:
		return d.searchAyah(ctx, action)
	case intent.ActionSearchSurah:
		return d.searchSurah(ctx, action)
	case intent.ActionGetRecitations:
		return d.reciterWithRecordings(ctx, action, d.limits.ReciterRecordings)
	case intent.ActionGetInfo:
		return d.reciterWithRecordings(ctx, action, 0)
	case intent.ActionGetFeatured:
		return d.recordingList(ctx, action, "featured", d.store.FeaturedRecordings, d.limits.Featured)
	case intent.ActionListReciters:
		return d.listReciters(ctx, action)
	default:
		return Result{Action: action, Classification: ClassEmpty}
	}
}

func (d *Dispatcher) searchReciter(ctx context.Context, action intent.Action) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	toks := arabic.QueryTokens(action.Query)
	if len(toks) == 0 {
		return res
	}
	patterns := make([]string, len(toks))
	for i, t := range toks {
		patterns[i] = arabic.MatchPattern(t)
	}

	reciters, err := d.store.SearchReciters(ctx, patterns, d.limits.NameSearch)
	if err != nil {
		d.warn(action, "searching reciters", err)
		res.Partial = true
		return res
	}

	switch len(reciters) {
	case 0:
		return res
	case 1:
		res.Classification = ClassSingle
		r := reciters[0]
		res.Reciter = &r
		recs, err := d.store.RecordingsByReciter(ctx, r.ID, d.limits.ReciterRecordings)
		if err != nil {
			d.warn(action, "loading reciter recordings", err)
			res.Partial = true
			return res
		}
		res.Recordings = playable(recs, d.limits.ReciterRecordings)
		return res
	default:
		res.Classification = ClassMultiple
		res.Reciters = reciters
		return res
	}
}

func (d *Dispatcher) searchAyah(ctx context.Context, action intent.Action) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	snippet := arabic.Normalize(action.Query)
	if snippet == "" {
		return res
	}

	// Verse lookup and reciter hint resolution are independent; run them
	// concurrently. A failed hint lookup degrades to an unfiltered verse
	// answer rather than failing the turn.
	var (
		verse      *Verse
		hintID     int64
		hintGiven = action.ReciterHint != ""
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := d.store.FindVerse(gctx, snippet)
		if err != nil {
			return err
		}
		verse = v
		return nil
	})
	if hintGiven {
		g.Go(func() error {
			toks := arabic.QueryTokens(action.ReciterHint)
			if len(toks) == 0 {
				return nil
			}
			patterns := make([]string, len(toks))
			for i, t := range toks {
				patterns[i] = arabic.MatchPattern(t)
			}
			matches, err := d.store.SearchReciters(gctx, patterns, 2)
			if err != nil {
				d.warn(action, "resolving reciter hint", err)
				res.Partial = true
				return nil
			}
			if len(matches) == 1 {
				hintID = matches[0].ID
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.warn(action, "searching verse", err)
		res.Partial = true
		return res
	}
	if verse == nil {
		return res
	}

	res.SurahNumber = verse.SurahNumber
	res.AyahNumber = verse.AyahNumber
	if name, ok := SurahName(verse.SurahNumber); ok {
		res.SurahName = name
	}

	recs, err := d.store.RecordingsCoveringAyah(ctx, verse.SurahNumber, verse.AyahNumber, d.limits.AyahRecordings)
	if err != nil {
		d.warn(action, "loading verse recordings", err)
		res.Partial = true
		res.Classification = ClassSingle
		return res
	}
	recs = playable(recs, d.limits.AyahRecordings)

	if hintGiven {
		if hintID != 0 {
			byHint := recs[:0:0]
			for _, r := range recs {
				if r.ReciterID == hintID {
					byHint = append(byHint, r)
				}
			}
			if len(byHint) > 0 {
				recs = byHint
			} else {
				res.HintMissed = true
				if !d.fallbackAlternatives {
					recs = nil
				}
			}
		} else {
			// Hint named nobody resolvable; the verse answer stands but
			// the miss must be surfaced.
			res.HintMissed = true
			if !d.fallbackAlternatives {
				recs = nil
			}
		}
	}

	res.Recordings = recs
	res.Classification = ClassSingle
	return res
}

func (d *Dispatcher) searchSurah(ctx context.Context, action intent.Action) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	n, name, ok := ResolveSurah(action.Query)
	if !ok {
		return res
	}
	res.SurahNumber = n
	res.SurahName = name

	recs, err := d.store.RecordingsBySurah(ctx, n, d.limits.SurahRecordings)
	if err != nil {
		d.warn(action, "loading chapter recordings", err)
		res.Partial = true
		res.Classification = ClassSingle
		return res
	}
	res.Recordings = playable(recs, d.limits.SurahRecordings)
	res.Classification = ClassSingle
	return res
}

// reciterWithRecordings serves both id-based lookups. recordingLimit 0
// means info only, no listing.
func (d *Dispatcher) reciterWithRecordings(ctx context.Context, action intent.Action, recordingLimit int) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	reciter, err := d.store.GetReciter(ctx, action.ReciterID)
	if err != nil {
		d.warn(action, "fetching reciter", err)
		res.Partial = true
		return res
	}
	if reciter == nil {
		return res
	}
	res.Classification = ClassSingle
	res.Reciter = reciter

	if recordingLimit > 0 {
		recs, err := d.store.RecordingsByReciter(ctx, reciter.ID, recordingLimit)
		if err != nil {
			d.warn(action, "loading reciter recordings", err)
			res.Partial = true
			return res
		}
		res.Recordings = playable(recs, recordingLimit)
	}
	return res
}

func (d *Dispatcher) recordingList(ctx context.Context, action intent.Action, what string, fetch func(context.Context, int) ([]Recording, error), limit int) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	recs, err := fetch(ctx, limit)
	if err != nil {
		d.warn(action, "loading "+what+" recordings", err)
		res.Partial = true
		return res
	}
	res.Recordings = playable(recs, limit)
	if len(res.Recordings) > 0 {
		res.Classification = ClassMultiple
	}
	return res
}

func (d *Dispatcher) listReciters(ctx context.Context, action intent.Action) Result {
	res := Result{Action: action, Classification: ClassEmpty}

	reciters, err := d.store.ListReciters(ctx, d.limits.ListReciters)
	if err != nil {
		d.warn(action, "listing reciters", err)
		res.Partial = true
		return res
	}
	res.Reciters = reciters
	if len(reciters) > 0 {
		res.Classification = ClassMultiple
	}
	return res
}

func (d *Dispatcher) warn(action intent.Action, what string, err error) {
	d.logger.Warn("catalog lookup degraded",
		"action", string(action.Kind),
		"stage", what,
		"error", err)
}

// playable filters out recordings without an audio asset and re-applies
// the cap, since filtering happens after the store's own bound.
func playable(recs []Recording, limit int) []Recording {
	out := recs[:0:0]
	for _, r := range recs {
		if r.Playable() {
			out = append(out, r)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
