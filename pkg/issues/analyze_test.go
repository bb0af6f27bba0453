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

package issues

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/triage"
	"github.com/daveymoores/carrick/pkg/typecheck"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

func TestAnalyze_MethodMismatch(t *testing.T) {
	graph := mountgraph.Graph{
		Endpoints: []mountgraph.ResolvedEndpoint{{Method: "GET", FullPath: "/users/:id"}},
		Calls: []triage.DataFetchingCall{
			{Method: "POST", URL: "/users/1", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindMethodMismatch, out[0].Kind)
	require.Equal(t, []string{"GET"}, out[0].SupportedMethods)
	require.Equal(t, "POST", out[0].AttemptedMethod)
}

func TestAnalyze_MissingEndpointWhenNoPathMatches(t *testing.T) {
	graph := mountgraph.Graph{
		Calls: []triage.DataFetchingCall{
			{Method: "GET", URL: "/unknown", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindMissingEndpoint, out[0].Kind)
}

func TestAnalyze_MissingEndpointCarriesNormalizedCallPath(t *testing.T) {
	graph := mountgraph.Graph{
		Calls: []triage.DataFetchingCall{
			{Method: "GET", URL: "https://api.example.com/unknown//trailing/", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{InternalDomains: []string{"api.example.com"}}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindMissingEndpoint, out[0].Kind)
	require.Equal(t, "/unknown/trailing", out[0].CallPath)
}

func TestAnalyze_MethodMismatchCarriesNormalizedPath(t *testing.T) {
	graph := mountgraph.Graph{
		Endpoints: []mountgraph.ResolvedEndpoint{{Method: "GET", FullPath: "/users/:id"}},
		Calls: []triage.DataFetchingCall{
			{Method: "POST", URL: "https://api.example.com/users/1/", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{InternalDomains: []string{"api.example.com"}}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindMethodMismatch, out[0].Kind)
	require.Equal(t, "/users/1", out[0].Path)
}

func TestAnalyze_ExternalCallSkippedEntirely(t *testing.T) {
	graph := mountgraph.Graph{
		Calls: []triage.DataFetchingCall{
			{Method: "GET", URL: "https://example.com/x", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{ExternalDomains: []string{"example.com"}}, nil)
	require.Empty(t, out)
}

func TestAnalyze_EnvVarSuggestion(t *testing.T) {
	graph := mountgraph.Graph{
		Calls: []triage.DataFetchingCall{
			{Method: "GET", URL: "ENV_VAR:ORDERS_HOST:/orders", Location: callsite.Location{File: "a.ts", Line: 1}},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindEnvVarSuggestion, out[0].Kind)
	require.Equal(t, "ORDERS_HOST", out[0].EnvVarName)
}

func TestAnalyze_OrphanEndpointWhenNeverHit(t *testing.T) {
	graph := mountgraph.Graph{
		Endpoints: []mountgraph.ResolvedEndpoint{{Method: "GET", FullPath: "/users"}},
	}
	out := Analyze(graph, nil, urlnorm.Config{}, nil)
	require.Len(t, out, 1)
	require.Equal(t, KindOrphanEndpoint, out[0].Kind)
}

func TestAnalyze_DependencyConflictScenarioF(t *testing.T) {
	deps := map[string]map[string]string{
		"p": {"express": "5.0.0", "react": "18.3.0", "lodash": "4.17.22"},
		"q": {"express": "4.18.0", "react": "18.2.0", "lodash": "4.17.21"},
	}
	out := Analyze(mountgraph.Graph{}, deps, urlnorm.Config{}, nil)
	require.Len(t, out, 3)

	bySeverity := map[string]Severity{}
	for _, issue := range out {
		require.Equal(t, KindDependencyConflict, issue.Kind)
		bySeverity[issue.Package] = issue.Severity
	}
	require.Equal(t, SeverityCritical, bySeverity["express"])
	require.Equal(t, SeverityWarning, bySeverity["react"])
	require.Equal(t, SeverityInfo, bySeverity["lodash"])
}

func TestAnalyze_MergesTypeMismatchesVerbatim(t *testing.T) {
	mismatches := []typecheck.TypeMismatch{
		{Endpoint: "GET /users", ProducerType: "User", ConsumerType: "UserDto", CompilerMessage: "mismatch", IsCompatible: false},
	}
	out := Analyze(mountgraph.Graph{}, nil, urlnorm.Config{}, mismatches)
	require.Len(t, out, 1)
	require.Equal(t, KindTypeMismatch, out[0].Kind)
	require.Equal(t, "GET /users", out[0].Endpoint)
}

func TestAnalyze_DedupsCallsBeforeAnalysis(t *testing.T) {
	loc := callsite.Location{File: "a.ts", Line: 1}
	graph := mountgraph.Graph{
		Calls: []triage.DataFetchingCall{
			{Method: "GET", URL: "/unknown", Location: loc},
			{Method: "GET", URL: "/unknown", Location: loc},
		},
	}
	out := Analyze(graph, nil, urlnorm.Config{}, nil)
	require.Len(t, out, 1)
}
