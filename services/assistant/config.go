// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant wires the conversation pipeline: sanitize history,
// resolve an action, dispatch it against the catalog, compose grounding
// and stream the final answer. It also exposes the HTTP surface.
package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/telawat/assistant/services/assistant/retrieval"
)

// defaultPersona is the site assistant's standing instructions for the
// streaming call. Factual grounding arrives separately as the last
// system turn and takes precedence over anything here.
const defaultPersona = "أنت مساعد موقع تلاوات، موقع عربي لتصفح التلاوات القرآنية والاستماع إليها. " +
	"تحدث بالعربية الفصحى بأسلوب ودود ومختصر. " +
	"ساعد الزوار في الوصول إلى القراء والتلاوات المتاحة في الموقع. " +
	"لا تصدر فتاوى ولا أحكاما شرعية، واعتذر بلطف عن الأسئلة الخارجة عن نطاق الموقع."

// Config holds the assistant's tunable settings. Zero values are filled
// from DefaultConfig, so a partial YAML file is fine.
type Config struct {
	// Persona is the standing system prompt for the streaming call.
	Persona string `yaml:"persona"`

	// Limits are the per-handler retrieval caps.
	Limits LimitsConfig `yaml:"limits"`

	// AyahFallbackAlternatives keeps other reciters' recordings of a
	// verse in the answer when the requested reciter has none.
	AyahFallbackAlternatives *bool `yaml:"ayah_fallback_alternatives"`

	// RateLimit bounds requests per client IP.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LimitsConfig mirrors retrieval.Limits for YAML.
type LimitsConfig struct {
	NameSearch        int `yaml:"name_search"`
	ReciterRecordings int `yaml:"reciter_recordings"`
	SurahRecordings   int `yaml:"surah_recordings"`
	AyahRecordings    int `yaml:"ayah_recordings"`
	Featured          int `yaml:"featured"`
	ListReciters      int `yaml:"list_reciters"`
}

// RateLimitConfig is a token-bucket per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	on := true
	d := retrieval.DefaultLimits()
	return Config{
		Persona: defaultPersona,
		Limits: LimitsConfig{
			NameSearch:        d.NameSearch,
			ReciterRecordings: d.ReciterRecordings,
			SurahRecordings:   d.SurahRecordings,
			AyahRecordings:    d.AyahRecordings,
			Featured:          d.Featured,
			ListReciters:      d.ListReciters,
		},
		AyahFallbackAlternatives: &on,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("assistant: reading config %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("assistant: parsing config %s: %w", path, err)
	}
	merge(&cfg, file)
	return cfg, nil
}

func merge(dst *Config, src Config) {
	if src.Persona != "" {
		dst.Persona = src.Persona
	}
	if src.Limits.NameSearch > 0 {
		dst.Limits.NameSearch = src.Limits.NameSearch
	}
	if src.Limits.ReciterRecordings > 0 {
		dst.Limits.ReciterRecordings = src.Limits.ReciterRecordings
	}
	if src.Limits.SurahRecordings > 0 {
		dst.Limits.SurahRecordings = src.Limits.SurahRecordings
	}
	if src.Limits.AyahRecordings > 0 {
		dst.Limits.AyahRecordings = src.Limits.AyahRecordings
	}
	if src.Limits.Featured > 0 {
		dst.Limits.Featured = src.Limits.Featured
	}
	if src.Limits.ListReciters > 0 {
		dst.Limits.ListReciters = src.Limits.ListReciters
	}
	if src.AyahFallbackAlternatives != nil {
		dst.AyahFallbackAlternatives = src.AyahFallbackAlternatives
	}
	if src.RateLimit.RequestsPerSecond > 0 {
		dst.RateLimit.RequestsPerSecond = src.RateLimit.RequestsPerSecond
	}
	if src.RateLimit.Burst > 0 {
		dst.RateLimit.Burst = src.RateLimit.Burst
	}
}

// RetrievalLimits converts the YAML form to the dispatcher's type.
func (c Config) RetrievalLimits() retrieval.Limits {
	return retrieval.Limits{
		NameSearch:        c.Limits.NameSearch,
		ReciterRecordings: c.Limits.ReciterRecordings,
		SurahRecordings:   c.Limits.SurahRecordings,
		AyahRecordings:    c.Limits.AyahRecordings,
		Featured:          c.Limits.Featured,
		ListReciters:      c.Limits.ListReciters,
	}
}

// FallbackAlternatives resolves the pointer with its default.
func (c Config) FallbackAlternatives() bool {
	if c.AyahFallbackAlternatives == nil {
		return true
	}
	return *c.AyahFallbackAlternatives
}
