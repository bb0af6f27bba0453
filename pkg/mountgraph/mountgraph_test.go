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

package mountgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/triage"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

func TestBuild_NestedMountResolvesFullPath(t *testing.T) {
	endpoints := []triage.HttpEndpoint{
		{Method: "GET", Path: "/:id", Owner: "userRouter", Location: callsite.Location{File: "routes/users.ts", Line: 5}},
	}
	mounts := []triage.MountRelationship{
		{Parent: "api", Child: "userRouter", Prefix: "/users"},
		{Parent: "app", Child: "api", Prefix: "/api"},
	}

	g := Build(endpoints, mounts, nil, nil, nil)
	require.Len(t, g.Endpoints, 1)
	require.Equal(t, "/api/users/:id", g.Endpoints[0].FullPath)
	require.Equal(t, "app", g.Endpoints[0].OutermostOwner)

	require.Equal(t, BehaviorRoot, g.Nodes["app"])
	require.Equal(t, BehaviorMountable, g.Nodes["api"])
	require.Equal(t, BehaviorMountable, g.Nodes["userRouter"])
}

func TestBuild_CycleBreaksAtRevisitedOwner(t *testing.T) {
	endpoints := []triage.HttpEndpoint{
		{Method: "GET", Path: "/x", Owner: "a", Location: callsite.Location{File: "a.ts"}},
	}
	mounts := []triage.MountRelationship{
		{Parent: "b", Child: "a", Prefix: "/b"},
		{Parent: "a", Child: "b", Prefix: "/a"},
	}

	g := Build(endpoints, mounts, nil, nil, nil)
	require.Len(t, g.Endpoints, 1)
	// Should terminate rather than loop forever; exact path depends on walk order.
	require.NotEmpty(t, g.Endpoints[0].FullPath)
}

func TestBuild_ImportRenamedRouterResolvesToSameOwner(t *testing.T) {
	endpoints := []triage.HttpEndpoint{
		{Method: "GET", Path: "/", Owner: "router", Location: callsite.Location{File: "routes/users.ts"}},
	}
	mounts := []triage.MountRelationship{
		{Parent: "app", Child: "userRouter", Prefix: "/users"},
	}
	imports := []callsite.ImportedSymbol{
		{LocalName: "userRouter", Source: "./routes/users", ExportedName: "default", Kind: callsite.ImportDefault, File: "app.ts"},
	}

	g := Build(endpoints, mounts, nil, nil, imports)
	require.Len(t, g.Endpoints, 1)
	require.Equal(t, "/users", g.Endpoints[0].FullPath)
}

func TestMatch_MethodMismatchReported(t *testing.T) {
	g := Graph{Endpoints: []ResolvedEndpoint{
		{Method: "GET", FullPath: "/users/:id"},
	}}

	result, suggestion := g.Match("POST", "/users/123", urlnorm.Config{})
	require.Nil(t, suggestion)
	require.Empty(t, result.Endpoints)
	require.Len(t, result.MethodMismatches, 1)
}

func TestMatch_SegmentWiseWildcardAndOptional(t *testing.T) {
	g := Graph{Endpoints: []ResolvedEndpoint{
		{Method: "GET", FullPath: "/files/**"},
		{Method: "GET", FullPath: "/users/:id/:tab?"},
	}}

	result, _ := g.Match("GET", "/files/a/b/c", urlnorm.Config{})
	require.Len(t, result.Endpoints, 1)

	result2, _ := g.Match("GET", "/users/42", urlnorm.Config{})
	require.Len(t, result2.Endpoints, 1)

	result3, _ := g.Match("GET", "/users/42/profile", urlnorm.Config{})
	require.Len(t, result3.Endpoints, 1)
}

func TestMatch_ExternalURLSkipped(t *testing.T) {
	g := Graph{Endpoints: []ResolvedEndpoint{{Method: "GET", FullPath: "/x"}}}
	cfg := urlnorm.Config{ExternalDomains: []string{"example.com"}}

	result, suggestion := g.Match("GET", "https://example.com/x", cfg)
	require.Nil(t, suggestion)
	require.Empty(t, result.Endpoints)
	require.Empty(t, result.MethodMismatches)
}

func TestMerge_DedupsByKeys(t *testing.T) {
	g1 := Graph{
		Nodes:     map[string]Behavior{"app": BehaviorRoot},
		Edges:     []MountEdge{{Parent: "app", Child: "api", Prefix: "/api"}},
		Endpoints: []ResolvedEndpoint{{Method: "GET", FullPath: "/api/x"}},
		Calls:     []triage.DataFetchingCall{{Method: "GET", URL: "/api/x", Location: callsite.Location{File: "a.ts", Line: 1}}},
	}
	g2 := Graph{
		Nodes:     map[string]Behavior{"app": BehaviorRoot},
		Edges:     []MountEdge{{Parent: "app", Child: "api", Prefix: "/api"}},
		Endpoints: []ResolvedEndpoint{{Method: "GET", FullPath: "/api/x"}},
		Calls:     []triage.DataFetchingCall{{Method: "GET", URL: "/api/x", Location: callsite.Location{File: "a.ts", Line: 1}}},
	}

	merged := Merge([]Graph{g1, g2})
	require.Len(t, merged.Edges, 1)
	require.Len(t, merged.Endpoints, 1)
	require.Len(t, merged.Calls, 1)
}
