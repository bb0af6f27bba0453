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

// Package merge implements the cross-repo merger (C9): it combines the
// current repo's in-memory artifact with previously-stored artifacts for
// other repos in the same organization.
package merge

import (
	"fmt"

	"github.com/daveymoores/carrick/pkg/artifact"
	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/triage"
)

// Merged is the cross-repo union: the merged mount graph, the
// deduplicated raw endpoint/call/mount lists, and the per-repo package
// maps (kept split, since dependency-conflict analysis needs to compare
// versions repo by repo).
type Merged struct {
	Graph               mountgraph.Graph
	Endpoints           []triage.HttpEndpoint
	Calls               []triage.DataFetchingCall
	Mounts              []triage.MountRelationship
	PackageDependencies map[string]map[string]string // repo name -> (package -> version)
}

// Merge combines artifacts by running mountgraph.Merge over their graphs
// and concatenating the raw endpoint/call/mount lists with an analogous
// per-field dedup rule. Package maps are kept per-repo.
func Merge(artifacts []artifact.PerRepoArtifact) Merged {
	graphs := make([]mountgraph.Graph, 0, len(artifacts))
	for _, a := range artifacts {
		graphs = append(graphs, a.Graph)
	}

	out := Merged{
		Graph:               mountgraph.Merge(graphs),
		PackageDependencies: make(map[string]map[string]string, len(artifacts)),
	}

	seenEndpoint := make(map[string]bool)
	seenCall := make(map[string]bool)
	seenMount := make(map[string]bool)

	for _, a := range artifacts {
		out.PackageDependencies[a.RepoName] = a.PackageDependencies

		for _, ep := range a.Endpoints {
			key := fmt.Sprintf("%s\x00%s\x00%s", ep.Method, ep.Path, ep.Owner)
			if seenEndpoint[key] {
				continue
			}
			seenEndpoint[key] = true
			out.Endpoints = append(out.Endpoints, ep)
		}
		for _, c := range a.Calls {
			key := fmt.Sprintf("%s\x00%s\x00%s", c.Method, c.URL, c.Location.String())
			if seenCall[key] {
				continue
			}
			seenCall[key] = true
			out.Calls = append(out.Calls, c)
		}
		for _, m := range a.Mounts {
			key := fmt.Sprintf("%s\x00%s\x00%s", m.Parent, m.Child, m.Prefix)
			if seenMount[key] {
				continue
			}
			seenMount[key] = true
			out.Mounts = append(out.Mounts, m)
		}
	}
	return out
}
