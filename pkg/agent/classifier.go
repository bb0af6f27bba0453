// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package agent wraps the external language-model service behind a
// narrow classify(prompt, schema) -> structured value request API (C4):
// batching, schema-gated decoding, retries with backoff, and a mock mode
// for deterministic tests.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Request is one classification request: a rendered prompt plus the name
// of the schema the response must satisfy. SchemaName is used only for
// logging/mock dispatch; the actual shape check happens in the caller via
// DecodeStrict against a concrete Go type.
type Request struct {
	Prompt     string
	SchemaName string
}

// RetryableError marks an error as eligible for the gateway's retry loop
// (spec §4.4/§7: AgentTransient). Errors not wrapped in RetryableError are
// treated as immediately hard failures.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Classifier is the minimal backend contract the gateway dispatches to.
type Classifier interface {
	Classify(ctx context.Context, req Request) (json.RawMessage, error)
	Name() string
}

// BackendConfig configures a real HTTP-backed classifier, mirroring the
// teacher's ProviderConfig shape (type/base URL/key/model/timeout).
type BackendConfig struct {
	Type         string // "ollama", "openai", "anthropic"
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
}

// NewClassifier builds a Classifier from config, reading any
// service-specific defaults from environment variables the same way the
// teacher's llm.NewProvider does.
func NewClassifier(cfg BackendConfig) (Classifier, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Type {
	case "ollama":
		base := cfg.BaseURL
		if base == "" {
			base = envOr("OLLAMA_HOST", "http://localhost:11434")
		}
		return &ollamaClassifier{base: base, model: cfg.DefaultModel, client: client}, nil
	case "openai":
		base := cfg.BaseURL
		if base == "" {
			base = envOr("OPENAI_API_BASE", "https://api.openai.com/v1")
		}
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return &openAIClassifier{base: base, apiKey: key, model: cfg.DefaultModel, client: client}, nil
	case "anthropic":
		base := cfg.BaseURL
		if base == "" {
			base = envOr("ANTHROPIC_API_BASE", "https://api.anthropic.com/v1")
		}
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		return &anthropicClassifier{base: base, apiKey: key, model: cfg.DefaultModel, client: client}, nil
	case "mock", "":
		return NewMockClassifier(nil), nil
	default:
		return nil, fmt.Errorf("agent: unknown classifier type %q", cfg.Type)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// chatMessage mirrors the teacher's llm.Message shape.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Ollama ---

type ollamaClassifier struct {
	base   string
	model  string
	client *http.Client
}

func (c *ollamaClassifier) Name() string { return "ollama" }

func (c *ollamaClassifier) Classify(ctx context.Context, req Request) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
		"format": "json",
		"stream": false,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("agent: ollama request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("agent: ollama status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: ollama status %d: %s", resp.StatusCode, string(data))
	}

	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("agent: decode ollama envelope: %w", err)
	}
	return json.RawMessage(envelope.Response), nil
}

// --- OpenAI-compatible ---

type openAIClassifier struct {
	base   string
	apiKey string
	model  string
	client *http.Client
}

func (c *openAIClassifier) Name() string { return "openai" }

func (c *openAIClassifier) Classify(ctx context.Context, req Request) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("agent: openai request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("agent: openai status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: openai status %d: %s", resp.StatusCode, string(data))
	}

	var envelope struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("agent: decode openai envelope: %w", err)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("agent: openai returned no choices")
	}
	return json.RawMessage(envelope.Choices[0].Message.Content), nil
}

// --- Anthropic ---

type anthropicClassifier struct {
	base   string
	apiKey string
	model  string
	client *http.Client
}

func (c *anthropicClassifier) Name() string { return "anthropic" }

func (c *anthropicClassifier) Classify(ctx context.Context, req Request) (json.RawMessage, error) {
	body, _ := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": 4096,
		"messages": []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("agent: anthropic request: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{Err: fmt.Errorf("agent: anthropic status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: anthropic status %d: %s", resp.StatusCode, string(data))
	}

	var envelope struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("agent: decode anthropic envelope: %w", err)
	}
	if len(envelope.Content) == 0 {
		return nil, fmt.Errorf("agent: anthropic returned no content blocks")
	}
	return json.RawMessage(envelope.Content[0].Text), nil
}
