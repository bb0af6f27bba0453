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

package triage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daveymoores/carrick/pkg/agent"
	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/detect"
)

type triageResponse struct {
	Labels []TriageLabel `json:"labels"`
}

// Triage classifies lean call sites in batches of at most
// agent.DefaultBatchSize, returning one label per input call site in the
// same order. A batch whose response doesn't carry exactly one label per
// input call site is a schema violation: it means the remote service
// dropped or invented records, and the rest of the pipeline cannot trust
// positional alignment in that case.
func Triage(ctx context.Context, gw *agent.Gateway, detection detect.FrameworkDetection, sites []callsite.LeanCallSite) ([]TriageLabel, error) {
	batches := agent.Batch(sites, agent.DefaultBatchSize)
	labels := make([]TriageLabel, 0, len(sites))

	for _, batch := range batches {
		raw, err := gw.Classify(ctx, agent.Request{
			Prompt:     buildTriagePrompt(detection, batch),
			SchemaName: "triage_batch",
		})
		if err != nil {
			return nil, fmt.Errorf("triage: classify batch: %w", err)
		}

		resp, err := agent.DecodeStrict[triageResponse]("triage_batch", raw)
		if err != nil {
			return nil, err
		}
		if len(resp.Labels) != len(batch) {
			return nil, fmt.Errorf("triage: batch of %d call sites returned %d labels", len(batch), len(resp.Labels))
		}
		labels = append(labels, resp.Labels...)
	}
	return labels, nil
}

func buildTriagePrompt(detection detect.FrameworkDetection, batch []callsite.LeanCallSite) string {
	type leanView struct {
		Callee     string `json:"callee"`
		FirstArg   string `json:"firstArg,omitempty"`
		ArgCount   int    `json:"argCount"`
		Definition string `json:"definition,omitempty"`
		Location   string `json:"location"`
	}
	views := make([]leanView, len(batch))
	for i, cs := range batch {
		callee := cs.CalleeProperty
		if cs.CalleeObject != "" {
			callee = cs.CalleeObject + "." + cs.CalleeProperty
		}
		views[i] = leanView{
			Callee:     callee,
			FirstArg:   cs.FirstArgLiteral,
			ArgCount:   cs.ArgCount,
			Definition: cs.DefinitionText,
			Location:   cs.Location.String(),
		}
	}
	callsJSON, _ := json.Marshal(views)
	detectionJSON, _ := json.Marshal(detection)

	return fmt.Sprintf(
		"Framework context: %s\n"+
			"Classify each call site below into exactly one label: "+
			"http_endpoint, data_fetching_call, router_mount, middleware, irrelevant.\n"+
			"Call sites: %s\n"+
			"Respond with JSON: {\"labels\": [{\"label\": \"...\", \"confidence\": 0.0-1.0}, ...]} "+
			"in the same order and count as the call sites given.",
		string(detectionJSON), string(callsJSON),
	)
}
