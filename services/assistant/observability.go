// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// tracerName is the shared OTel tracer name for the assistant pipeline.
const tracerName = "telawat.assistant"

// Package-level Prometheus metrics for the conversation pipeline.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// actionsTotal counts resolved intents.
	//
	// Labels:
	//   - kind: "none", "search_reciter", "search_ayah", "search_surah",
	//     "get_recitations", "get_info", "get_featured", "list_reciters"
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telawat",
			Subsystem: "assistant",
			Name:      "actions_total",
			Help:      "Total resolved intents by action kind.",
		},
		[]string{"kind"},
	)

	// dispatchOutcomesTotal counts catalog dispatch outcomes.
	//
	// Labels:
	//   - kind: action kind
	//   - classification: "empty", "single", "multiple"
	dispatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "telawat",
			Subsystem: "assistant",
			Name:      "dispatch_outcomes_total",
			Help:      "Total catalog dispatch outcomes by classification.",
		},
		[]string{"kind", "classification"},
	)

	// turnDuration measures the full pipeline duration of one chat turn,
	// including the streamed answer.
	//
	// Labels:
	//   - grounded: "true" when a retrieval action ran, "false" for
	//     conversational turns
	//   - status: "success" or "error"
	turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "telawat",
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "Duration of one chat turn in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"grounded", "status"},
	)
)
