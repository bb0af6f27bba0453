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

import "fmt"

// Merge unions nodes, mount edges, endpoints, and data calls from
// multiple per-repo graphs. Relative order between surviving records is
// unspecified; callers that need stable output ordering must sort after
// merging.
func Merge(graphs []Graph) Graph {
	out := Graph{Nodes: make(map[string]Behavior)}

	seenEdge := make(map[string]bool)
	seenEndpoint := make(map[string]bool)
	seenCall := make(map[string]bool)

	for _, g := range graphs {
		for name, behavior := range g.Nodes {
			if _, ok := out.Nodes[name]; !ok {
				out.Nodes[name] = behavior
			}
		}
		for _, e := range g.Edges {
			key := fmt.Sprintf("%s\x00%s\x00%s", e.Parent, e.Child, e.Prefix)
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			out.Edges = append(out.Edges, e)
		}
		for _, ep := range g.Endpoints {
			key := fmt.Sprintf("%s\x00%s", ep.Method, ep.FullPath)
			if seenEndpoint[key] {
				continue
			}
			seenEndpoint[key] = true
			out.Endpoints = append(out.Endpoints, ep)
		}
		for _, c := range g.Calls {
			key := fmt.Sprintf("%s\x00%s\x00%s", c.Method, c.URL, c.Location.String())
			if seenCall[key] {
				continue
			}
			seenCall[key] = true
			out.Calls = append(out.Calls, c)
		}
	}
	return out
}
