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
	"fmt"

	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/triage"
	"github.com/daveymoores/carrick/pkg/typecheck"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

// Analyze is C10's pure function. It is deterministic given the same
// inputs up to the order of records sharing a dedup key; callers that
// need stable output should sort the result.
func Analyze(graph mountgraph.Graph, packageDeps map[string]map[string]string, cfg urlnorm.Config, typeMismatches []typecheck.TypeMismatch) []Issue {
	var out []Issue

	calls := dedupCalls(graph.Calls, cfg)
	hit := make(map[string]bool, len(graph.Endpoints))

	for _, call := range calls {
		result, suggestion := graph.Match(call.Method, call.URL, cfg)
		if suggestion != nil {
			out = append(out, Issue{
				Kind:           KindEnvVarSuggestion,
				EnvVarName:     suggestion.EnvVarName,
				Method:         call.Method,
				SourceLocation: call.Location,
			})
			continue
		}

		for _, ep := range result.Endpoints {
			hit[endpointKey(ep)] = true
		}

		normalizedPath, matchable := normalizedCallPath(call.URL, cfg)

		switch {
		case len(result.Endpoints) > 0:
			// Matched; nothing to report for this call.
		case len(result.MethodMismatches) > 0:
			methods := make([]string, 0, len(result.MethodMismatches))
			for _, ep := range result.MethodMismatches {
				methods = append(methods, ep.Method)
				hit[endpointKey(ep)] = true
			}
			out = append(out, Issue{
				Kind:             KindMethodMismatch,
				Path:             normalizedPath,
				SupportedMethods: methods,
				AttemptedMethod:  call.Method,
				SourceLocation:   call.Location,
			})
		default:
			if matchable {
				out = append(out, Issue{
					Kind:           KindMissingEndpoint,
					CallMethod:     call.Method,
					CallPath:       normalizedPath,
					SourceLocation: call.Location,
				})
			}
		}
	}

	for _, ep := range graph.Endpoints {
		if !hit[endpointKey(ep)] {
			out = append(out, Issue{
				Kind:           KindOrphanEndpoint,
				Method:         ep.Method,
				FullPath:       ep.FullPath,
				SourceLocation: ep.Location,
			})
		}
	}

	out = append(out, dependencyConflicts(packageDeps)...)

	for _, m := range typeMismatches {
		out = append(out, FromTypeMismatch(m))
	}

	return out
}

func endpointKey(ep mountgraph.ResolvedEndpoint) string {
	return fmt.Sprintf("%s\x00%s", ep.Method, ep.FullPath)
}

// normalizedCallPath runs a call's raw target through C3 normalization,
// reporting the matchable path plus whether the target was matchable at
// all (a Skip or EnvVarSuggestion outcome is reported separately and
// never reaches callers of this helper as a matchable path).
func normalizedCallPath(rawURL string, cfg urlnorm.Config) (path string, matchable bool) {
	outcome := urlnorm.Normalize(rawURL, cfg)
	if outcome.Kind != urlnorm.KindMatchable {
		return rawURL, false
	}
	return outcome.Path, true
}

// dedupCalls deduplicates by (method, normalized_path, source_location)
// before analysis, so the same call observed twice (e.g. through two
// extraction paths) is only analyzed once.
func dedupCalls(calls []triage.DataFetchingCall, cfg urlnorm.Config) []triage.DataFetchingCall {
	seen := make(map[string]bool, len(calls))
	out := make([]triage.DataFetchingCall, 0, len(calls))
	for _, c := range calls {
		normalizedPath, _ := normalizedCallPath(c.URL, cfg)
		key := fmt.Sprintf("%s\x00%s\x00%s", c.Method, normalizedPath, c.Location.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// dependencyConflicts compares every package appearing in two or more
// repos' package maps and emits one conflict per package showing any
// disagreement, at the worst severity found across all repo pairs.
func dependencyConflicts(packageDeps map[string]map[string]string) []Issue {
	versionsByPackage := make(map[string][]RepoVersion)
	repoNames := make([]string, 0, len(packageDeps))
	for repo := range packageDeps {
		repoNames = append(repoNames, repo)
	}

	for _, repo := range repoNames {
		for pkg, version := range packageDeps[repo] {
			versionsByPackage[pkg] = append(versionsByPackage[pkg], RepoVersion{Repo: repo, Version: version})
		}
	}

	var out []Issue
	for pkg, versions := range versionsByPackage {
		if len(versions) < 2 {
			continue
		}
		var worst Severity
		conflict := false
		for i := 0; i < len(versions); i++ {
			for j := i + 1; j < len(versions); j++ {
				sev, differs := diffSeverity(versions[i].Version, versions[j].Version)
				if !differs {
					continue
				}
				conflict = true
				if severityRank(sev) > severityRank(worst) {
					worst = sev
				}
			}
		}
		if conflict {
			out = append(out, Issue{
				Kind:     KindDependencyConflict,
				Package:  pkg,
				Versions: versions,
				Severity: worst,
			})
		}
	}
	return out
}
