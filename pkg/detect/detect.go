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

// Package detect implements the per-repo framework detector (C5): one
// classification request over the package dependency map and the set of
// import specifiers seen during extraction, producing the HTTP frameworks
// and data-fetching libraries used as context for triage and the
// specialists. The result is advisory only; nothing downstream may gate
// on a specific framework name.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/daveymoores/carrick/pkg/agent"
)

// FrameworkDetection is the C5 result, carried as context into every
// triage and specialist prompt.
type FrameworkDetection struct {
	HTTPFrameworks        []string `json:"httpFrameworks"`
	DataFetchingLibraries []string `json:"dataFetchingLibraries"`
	Note                  string   `json:"note"`
}

// Detect issues a single classification request per repo. deps is the
// package.json-style dependency map; importSpecifiers is the
// deduplicated set of module specifiers C2 saw across the repo's files.
func Detect(ctx context.Context, gw *agent.Gateway, deps map[string]string, importSpecifiers []string) (FrameworkDetection, error) {
	prompt := buildPrompt(deps, importSpecifiers)

	raw, err := gw.Classify(ctx, agent.Request{Prompt: prompt, SchemaName: "framework_detection"})
	if err != nil {
		return FrameworkDetection{}, fmt.Errorf("detect: classify: %w", err)
	}

	result, err := agent.DecodeStrict[FrameworkDetection]("framework_detection", raw)
	if err != nil {
		return FrameworkDetection{}, err
	}
	return result, nil
}

func buildPrompt(deps map[string]string, importSpecifiers []string) string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	specifiers := append([]string(nil), importSpecifiers...)
	sort.Strings(specifiers)
	specifiers = dedupe(specifiers)

	depJSON, _ := json.Marshal(names)
	specJSON, _ := json.Marshal(specifiers)

	var b strings.Builder
	b.WriteString("Classify this JavaScript/TypeScript repository's HTTP stack.\n")
	b.WriteString("Dependencies: ")
	b.Write(depJSON)
	b.WriteString("\nImport specifiers seen in source: ")
	b.Write(specJSON)
	b.WriteString("\nRespond with JSON: {\"httpFrameworks\": [...], \"dataFetchingLibraries\": [...], \"note\": \"...\"}.\n")
	b.WriteString("httpFrameworks lists server-side routing libraries (e.g. express, fastify, koa).\n")
	b.WriteString("dataFetchingLibraries lists client-side/outbound request libraries (e.g. fetch, axios, got, node-fetch).\n")
	return b.String()
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var last string
	first := true
	for _, s := range sorted {
		if !first && s == last {
			continue
		}
		out = append(out, s)
		last = s
		first = false
	}
	return out
}
