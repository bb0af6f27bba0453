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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/agent"
	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/detect"
)

func lean(callee, property string) callsite.LeanCallSite {
	return callsite.LeanCallSite{CalleeObject: callee, CalleeProperty: property, ArgCount: 2}
}

func TestTriage_BatchesAndPreservesOrder(t *testing.T) {
	sites := make([]callsite.LeanCallSite, 12)
	for i := range sites {
		sites[i] = lean("app", "get")
	}

	// Responds with a label count keyed off call order, since the mock has
	// no visibility into how many call sites were embedded in the prompt.
	calls := 0
	sizes := []int{10, 2}
	mock := agent.NewMockClassifier(func(req agent.Request) (json.RawMessage, error) {
		n := sizes[calls]
		calls++
		label := LabelHTTPEndpoint
		if calls == 2 {
			label = LabelRouterMount
		}
		labels := make([]TriageLabel, n)
		for i := range labels {
			labels[i] = TriageLabel{Label: label, Confidence: 1}
		}
		raw, _ := json.Marshal(triageResponse{Labels: labels})
		return raw, nil
	})
	gw := agent.NewGateway(mock, agent.GatewayConfig{InterBatchDelay: time.Millisecond})

	labels, err := Triage(context.Background(), gw, detect.FrameworkDetection{}, sites)
	require.NoError(t, err)
	require.Len(t, labels, 12)
	require.Equal(t, 2, calls)
	require.Equal(t, LabelHTTPEndpoint, labels[9].Label)
	require.Equal(t, LabelRouterMount, labels[10].Label)
}

func TestTriage_MismatchedLabelCountIsError(t *testing.T) {
	mock := agent.NewMockClassifier(func(req agent.Request) (json.RawMessage, error) {
		raw, _ := json.Marshal(triageResponse{Labels: []TriageLabel{{Label: LabelIrrelevant}}})
		return raw, nil
	})
	gw := agent.NewGateway(mock, agent.GatewayConfig{InterBatchDelay: time.Millisecond})

	sites := []callsite.LeanCallSite{lean("app", "get"), lean("app", "post")}
	_, err := Triage(context.Background(), gw, detect.FrameworkDetection{}, sites)
	require.Error(t, err)
}
