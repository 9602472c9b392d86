// Copyright 2025 Verdant Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/core"
)

// ChunkExtractor implements ai.ChunkExtractor using OpenAI-compatible chat APIs.
type ChunkExtractor struct {
	client        llms.Model
	model         string
	maxChunkRunes int
	logger        *slog.Logger
}

// chunk is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type chunk struct {
	Content      string   `json:"content"`
	Summary      string   `json:"summary"`
	Tags         []string `json:"tags"`
	Propositions []string `json:"propositions"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Chunks []chunk `json:"chunks"`
}

// newChunkExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newChunkExtractor(config *ai.Config) (*ChunkExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChunkExtractor{
		client:        client,
		model:         config.ExtractorModel,
		maxChunkRunes: config.MaxChunkRunes,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewChunkExtractor creates a new chunk extractor using the provided configuration.
//
// Returns ai.ChunkExtractor interface to enforce abstraction.
func NewChunkExtractor(config *ai.Config) (ai.ChunkExtractor, error) {
	return newChunkExtractor(config)
}

// ExtractChunks splits a document into enriched chunks using an LLM.
// Chunks below the minimum content length are dropped; chunks above the
// configured maximum are truncated at a rune boundary.
func (e *ChunkExtractor) ExtractChunks(ctx context.Context, text string) ([]ai.ExtractedChunk, error) {
	systemPrompt := buildExtractionPrompt()
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.ExtractedChunk{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	extracted := make([]ai.ExtractedChunk, 0, len(result.Chunks))
	dropped := 0
	for _, c := range result.Chunks {
		content := strings.TrimSpace(c.Content)
		if utf8.RuneCountInString(content) < core.MinChunkLength {
			dropped++
			continue
		}
		if utf8.RuneCountInString(content) > e.maxChunkRunes {
			e.logger.Warn("truncating oversized chunk",
				"runes", utf8.RuneCountInString(content),
				"max", e.maxChunkRunes)
			content = string([]rune(content)[:e.maxChunkRunes])
		}

		extracted = append(extracted, ai.ExtractedChunk{
			Index:        len(extracted),
			Content:      content,
			Summary:      strings.TrimSpace(c.Summary),
			Tags:         normalizeTags(c.Tags),
			Propositions: c.Propositions,
			TokenCount:   llms.CountTokens(e.model, content),
		})
	}

	e.logger.Debug("extracted chunks",
		"total", len(result.Chunks),
		"kept", len(extracted),
		"dropped", dropped)

	return extracted, nil
}
