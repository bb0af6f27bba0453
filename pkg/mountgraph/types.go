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

// Package mountgraph builds the behavior-classified node set and
// mount-edge list (C7), resolves every endpoint's full path by walking
// its mount chain, and matches data-fetching calls against resolved
// endpoints.
package mountgraph

import (
	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/triage"
)

// Behavior classifies a node by how it's used: a name that ever mounts
// another is Root, a name that ever gets mounted is Mountable, and a name
// that's never observed either way is Unknown.
type Behavior string

const (
	BehaviorRoot      Behavior = "root"
	BehaviorMountable Behavior = "mountable"
	BehaviorUnknown   Behavior = "unknown"
)

// MountEdge is a single parent/child/prefix mount relationship after
// owner-name resolution.
type MountEdge struct {
	Parent string
	Child  string
	Prefix string
}

// ResolvedEndpoint is an HttpEndpoint after the mount chain walk.
type ResolvedEndpoint struct {
	Method       string
	FullPath     string
	Owner        string
	OutermostOwner string
	Location     callsite.Location
	ResponseType *callsite.ResultType
}

// Graph is the C7 aggregate: named nodes, mount edges, resolved
// endpoints, and the data-fetching calls copied verbatim from
// extraction.
type Graph struct {
	Nodes     map[string]Behavior
	Edges     []MountEdge
	Endpoints []ResolvedEndpoint
	Calls     []triage.DataFetchingCall
}

// MatchResult is one outcome of Match: either a full method+path match,
// or a path-only match recorded for method-mismatch reporting.
type MatchResult struct {
	Endpoints       []ResolvedEndpoint
	MethodMismatches []ResolvedEndpoint
}
