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
	"path/filepath"
	"strings"

	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/triage"
)

// Build runs C7's construction algorithm: seed the node set, classify
// node behavior, resolve owner-name aliases introduced by imports, and
// compute every endpoint's full path by walking its mount chain.
func Build(endpoints []triage.HttpEndpoint, mounts []triage.MountRelationship, middleware []triage.MiddlewareRegistration, calls []triage.DataFetchingCall, imports []callsite.ImportedSymbol) Graph {
	endpoints = append([]triage.HttpEndpoint(nil), endpoints...)
	mounts = resolveOwnerAliases(endpoints, mounts, imports)

	nodes := seedNodes(endpoints, mounts, middleware)
	classifyBehavior(nodes, mounts)

	childToParent := make(map[string]triage.MountRelationship)
	for _, m := range mounts {
		childToParent[m.Child] = m
	}

	resolved := make([]ResolvedEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		fullPath, outermost := walkMountChain(ep.Owner, ep.Path, childToParent)
		resolved = append(resolved, ResolvedEndpoint{
			Method:         ep.Method,
			FullPath:       fullPath,
			Owner:          ep.Owner,
			OutermostOwner: outermost,
			Location:       ep.Location,
			ResponseType:   ep.ResponseType,
		})
	}

	edges := make([]MountEdge, 0, len(mounts))
	for _, m := range mounts {
		edges = append(edges, MountEdge{Parent: m.Parent, Child: m.Child, Prefix: m.Prefix})
	}

	return Graph{
		Nodes:     nodes,
		Edges:     edges,
		Endpoints: resolved,
		Calls:     append([]triage.DataFetchingCall(nil), calls...),
	}
}

func seedNodes(endpoints []triage.HttpEndpoint, mounts []triage.MountRelationship, middleware []triage.MiddlewareRegistration) map[string]Behavior {
	nodes := make(map[string]Behavior)
	for _, ep := range endpoints {
		nodes[ep.Owner] = BehaviorUnknown
	}
	for _, m := range mounts {
		nodes[m.Parent] = BehaviorUnknown
		nodes[m.Child] = BehaviorUnknown
	}
	for _, mw := range middleware {
		nodes[mw.Owner] = BehaviorUnknown
	}
	return nodes
}

func classifyBehavior(nodes map[string]Behavior, mounts []triage.MountRelationship) {
	parents := make(map[string]bool)
	children := make(map[string]bool)
	for _, m := range mounts {
		parents[m.Parent] = true
		children[m.Child] = true
	}
	for name := range nodes {
		switch {
		case parents[name]:
			nodes[name] = BehaviorRoot
		case children[name]:
			nodes[name] = BehaviorMountable
		default:
			nodes[name] = BehaviorUnknown
		}
	}
	// A node that is both parent and child is a nested router: Mountable.
	for name := range parents {
		if children[name] {
			nodes[name] = BehaviorMountable
		}
	}
}

// walkMountChain prepends mount prefixes from the endpoint's route up
// through the chain of parents, stopping at a non-child owner or a
// revisited owner (cycle break).
func walkMountChain(owner, path string, childToParent map[string]triage.MountRelationship) (fullPath string, outermost string) {
	current := owner
	full := path
	seen := map[string]bool{current: true}

	for {
		rel, ok := childToParent[current]
		if !ok {
			break
		}
		full = joinPrefix(rel.Prefix, full)
		current = rel.Parent
		if seen[current] {
			break
		}
		seen[current] = true
	}
	return normalizeSlashes(full), current
}

func joinPrefix(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

func normalizeSlashes(path string) string {
	if path == "" {
		return "/"
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

// resolveOwnerAliases implements the import-based owner-name resolution
// rule: when a mount edge names a child that isn't a node produced by any
// endpoint/mount/middleware record, look for an internal import whose
// local name equals the child and whose source module resolves (by file
// path, extension-insensitively) to the file where some other owner's
// endpoints are defined. Endpoints owned by that original name are
// rewritten to the mount child's name so the two observations merge into
// one node.
func resolveOwnerAliases(endpoints []triage.HttpEndpoint, mounts []triage.MountRelationship, imports []callsite.ImportedSymbol) []triage.MountRelationship {
	known := make(map[string]bool)
	for _, ep := range endpoints {
		known[ep.Owner] = true
	}
	for _, m := range mounts {
		known[m.Parent] = true
	}

	ownerFile := make(map[string]string)
	for _, ep := range endpoints {
		if _, ok := ownerFile[ep.Owner]; !ok {
			ownerFile[ep.Owner] = ep.Location.File
		}
	}

	for _, m := range mounts {
		if known[m.Child] {
			continue
		}
		original, ok := resolveImportedOwner(m.Child, imports, ownerFile)
		if !ok {
			continue
		}
		for i := range endpoints {
			if endpoints[i].Owner == original {
				endpoints[i].Owner = m.Child
			}
		}
		known[m.Child] = true
	}
	return mounts
}

func resolveImportedOwner(childName string, imports []callsite.ImportedSymbol, ownerFile map[string]string) (string, bool) {
	for _, imp := range imports {
		if imp.LocalName != childName {
			continue
		}
		if !strings.HasPrefix(imp.Source, ".") {
			continue // not internal to the repo
		}
		resolvedSource := resolveRelative(imp.File, imp.Source)
		for owner, file := range ownerFile {
			if stripExt(file) == stripExt(resolvedSource) {
				return owner, true
			}
		}
	}
	return "", false
}

func resolveRelative(fromFile, source string) string {
	dir := filepath.Dir(fromFile)
	return filepath.Clean(filepath.Join(dir, source))
}

func stripExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
