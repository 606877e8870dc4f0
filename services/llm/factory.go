// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Provider identifiers accepted in LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// NewClientFromEnv creates the LLMClient selected by LLM_PROVIDER.
//
// Description:
//
//	Reads LLM_PROVIDER ("anthropic" or "openai", default "anthropic") and
//	delegates to the matching constructor, which reads that provider's own
//	credential variables. A missing credential surfaces here as an error;
//	the server treats it as a fatal startup condition.
//
// Outputs:
//   - LLMClient: The configured provider client.
//   - error: Non-nil on unknown provider or missing credentials.
func NewClientFromEnv() (LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if provider == "" {
		provider = ProviderAnthropic
	}

	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient()
	case ProviderOpenAI:
		return NewOpenAIClient()
	default:
		slog.Warn("Unknown LLM provider requested", slog.String("provider", provider))
		return nil, fmt.Errorf("llm: unknown provider %q (want %q or %q)", provider, ProviderAnthropic, ProviderOpenAI)
	}
}
