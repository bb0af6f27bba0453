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

// Package orchestrator sequences C1-C10 for both entry points (C11):
// analyzing a single repo into a PerRepoArtifact, and combining several
// repos' artifacts into a cross-repo issue report.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/daveymoores/carrick/pkg/agent"
	"github.com/daveymoores/carrick/pkg/artifact"
	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/detect"
	"github.com/daveymoores/carrick/pkg/issues"
	"github.com/daveymoores/carrick/pkg/merge"
	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/syntax"
	"github.com/daveymoores/carrick/pkg/triage"
	"github.com/daveymoores/carrick/pkg/typecheck"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

// Config controls a single AnalyzeRepo run.
type Config struct {
	RepoName             string
	CommitHash           string // empty triggers `git rev-parse HEAD` in root
	NormalizerConfigPath string // defaults to <root>/.carrick/config.json
	Extractor            typecheck.Extractor
	TSConfigPath         string
	TypesOutputPath      string
	Concurrency          int // defaults to runtime.NumCPU()
	Logger               *slog.Logger
}

func (c *Config) withDefaults(root string) Config {
	out := *c
	if out.NormalizerConfigPath == "" {
		out.NormalizerConfigPath = filepath.Join(root, ".carrick", "config.json")
	}
	if out.Concurrency <= 0 {
		out.Concurrency = runtime.NumCPU()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

type parseResult struct {
	file     string
	calls    []callsite.CallSite
	imports  []callsite.ImportedSymbol
	warnings []syntax.Warning
}

// AnalyzeRepo discovers source files, runs C1/C2 across them in
// parallel, runs C5 and C6, builds the mount graph via C7, and assembles
// the PerRepoArtifact. It cancels cleanly on ctx cancellation: in-flight
// agent-gateway requests are abandoned and partial results discarded.
func AnalyzeRepo(ctx context.Context, root string, gw *agent.Gateway, cfg Config) (*artifact.PerRepoArtifact, error) {
	cfg = cfg.withDefaults(root)
	log := cfg.Logger

	log.Info("orchestrator.analyze_repo.start", "repo", cfg.RepoName, "root", root)

	files, err := DiscoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: discover files: %w", err)
	}
	log.Info("orchestrator.discover.done", "repo", cfg.RepoName, "files", len(files))

	results, err := parseFilesParallel(ctx, root, files, cfg.Concurrency, log)
	if err != nil {
		return nil, err
	}

	var allCalls []callsite.CallSite
	var allImports []callsite.ImportedSymbol
	var warningCount int
	for _, r := range results {
		allCalls = append(allCalls, r.calls...)
		allImports = append(allImports, r.imports...)
		warningCount += len(r.warnings)
	}
	log.Info("orchestrator.extract.done", "repo", cfg.RepoName, "call_sites", len(allCalls), "imports", len(allImports), "warnings", warningCount)

	deps, err := LoadPackageDependencies(root)
	if err != nil {
		return nil, err
	}

	detection := detect.FrameworkDetection{}
	if gw != nil {
		detection, err = detect.Detect(ctx, gw, deps, importSpecifiers(allImports))
		if err != nil {
			return nil, fmt.Errorf("orchestrator: detect frameworks: %w", err)
		}
		log.Info("orchestrator.detect.done", "repo", cfg.RepoName, "http_frameworks", detection.HTTPFrameworks)
	}

	lean := make([]callsite.LeanCallSite, len(allCalls))
	for i, cs := range allCalls {
		lean[i] = cs.Lean()
	}

	var results4 triage.Results
	if gw != nil {
		labels, err := triage.Triage(ctx, gw, detection, lean)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: triage: %w", err)
		}
		results4 = triage.RunSpecialists(labels, allCalls, ownerNames(allCalls))
		log.Info("orchestrator.triage.done", "repo", cfg.RepoName,
			"endpoints", len(results4.Endpoints), "calls", len(results4.Calls),
			"mounts", len(results4.Mounts), "middleware", len(results4.Middleware))
	}

	graph := mountgraph.Build(results4.Endpoints, results4.Mounts, results4.Middleware, results4.Calls, allImports)
	log.Info("orchestrator.mountgraph.done", "repo", cfg.RepoName, "nodes", len(graph.Nodes), "endpoints", len(graph.Endpoints))

	if cfg.Extractor != nil {
		if _, err := cfg.Extractor.Extract(ctx, typeInfoFor(graph), cfg.TSConfigPath, deps, cfg.TypesOutputPath); err != nil {
			log.Warn("orchestrator.typecheck.extract_failed", "repo", cfg.RepoName, "error", err.Error())
		}
	}

	commitHash := cfg.CommitHash
	if commitHash == "" {
		commitHash = resolveCommitHash(ctx, root)
	}

	normalizerRaw, warnings, err := readRawNormalizerConfig(cfg.NormalizerConfigPath)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn("orchestrator.normalizer_config.warning", "repo", cfg.RepoName, "message", w)
	}

	a := artifact.New(cfg.RepoName, commitHash, time.Now().UTC().Format(time.RFC3339),
		results4.Endpoints, results4.Calls, results4.Mounts, graph, deps, normalizerRaw)

	log.Info("orchestrator.analyze_repo.done", "repo", cfg.RepoName)
	return &a, nil
}

// CombineAndAnalyze runs C9 then C10: merges artifacts, invokes the
// external type checker once over the combined type-file set (if
// checker is non-nil), and produces the final issue list.
func CombineAndAnalyze(ctx context.Context, artifacts []artifact.PerRepoArtifact, checker typecheck.Checker, typesDir string, normalizerCfg urlnorm.Config) ([]issues.Issue, error) {
	merged := merge.Merge(artifacts)

	var mismatches []typecheck.TypeMismatch
	if checker != nil {
		var err error
		mismatches, err = checker.Check(ctx, typesDir)
		if err != nil {
			slog.Default().Warn("orchestrator.typecheck.check_failed", "error", err.Error())
			mismatches = nil
		}
	}

	result := issues.Analyze(merged.Graph, merged.PackageDependencies, normalizerCfg, mismatches)
	sortIssues(result)
	return result, nil
}

func parseFilesParallel(ctx context.Context, root string, files []string, concurrency int, log *slog.Logger) ([]parseResult, error) {
	type indexed struct {
		idx int
		res parseResult
		err error
	}

	jobs := make(chan int)
	out := make(chan indexed, len(files))
	results := make([]parseResult, len(files))

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					out <- indexed{idx: idx, err: ctx.Err()}
					continue
				default:
				}
				rel := files[idx]
				full := filepath.Join(root, rel)
				content, err := os.ReadFile(full)
				if err != nil {
					out <- indexed{idx: idx, err: err}
					continue
				}
				tree, warnings, err := syntax.ParseFile(rel, content)
				if err != nil {
					// A file the parser rejects is skipped with a warning
					// rather than failing the whole run.
					out <- indexed{idx: idx, res: parseResult{file: rel, warnings: []syntax.Warning{{File: rel, Message: err.Error()}}}}
					continue
				}
				extracted := callsite.Extract(tree)
				tree.Close()
				out <- indexed{idx: idx, res: parseResult{file: rel, calls: extracted.CallSites, imports: extracted.Imports, warnings: warnings}}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range files {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var firstErr error
	for r := range out {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			log.Warn("orchestrator.parse.file_error", "file", files[r.idx], "error", r.err.Error())
			continue
		}
		results[r.idx] = r.res
	}
	if firstErr != nil {
		return nil, fmt.Errorf("orchestrator: parse: %w", firstErr)
	}
	return results, nil
}

func importSpecifiers(imports []callsite.ImportedSymbol) []string {
	seen := make(map[string]bool)
	var out []string
	for _, imp := range imports {
		if seen[imp.Source] {
			continue
		}
		seen[imp.Source] = true
		out = append(out, imp.Source)
	}
	return out
}

func ownerNames(calls []callsite.CallSite) map[string]bool {
	owners := make(map[string]bool)
	for _, cs := range calls {
		if cs.CalleeObject != "" {
			owners[cs.CalleeObject] = true
		}
	}
	return owners
}

func typeInfoFor(graph mountgraph.Graph) []typecheck.TypeInfo {
	var infos []typecheck.TypeInfo
	for _, ep := range graph.Endpoints {
		if ep.ResponseType == nil {
			continue
		}
		infos = append(infos, typecheck.TypeInfo{
			FilePath:            ep.Location.File,
			StartPosition:       ep.ResponseType.ByteOffset,
			CompositeTypeString: ep.ResponseType.Text,
			Alias:               typecheck.ProducerAlias(ep.Method, ep.FullPath),
		})
	}
	for i, call := range graph.Calls {
		if call.ExpectedType == nil {
			continue
		}
		alias := typecheck.LocationFallbackAlias(call.Location.Line, call.Location.Column)
		if call.URL != "" {
			alias = typecheck.ConsumerAlias(call.Method, call.URL, i+1)
		}
		infos = append(infos, typecheck.TypeInfo{
			FilePath:            call.Location.File,
			StartPosition:       call.ExpectedType.ByteOffset,
			CompositeTypeString: call.ExpectedType.Text,
			Alias:               alias,
		})
	}
	return infos
}

func resolveCommitHash(ctx context.Context, root string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func readRawNormalizerConfig(path string) ([]byte, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("orchestrator: read normalizer config: %w", err)
	}
	return data, nil, nil
}

func sortIssues(list []issues.Issue) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Kind != list[j].Kind {
			return list[i].Kind < list[j].Kind
		}
		return issueSortKey(list[i]) < issueSortKey(list[j])
	})
}

func issueSortKey(i issues.Issue) string {
	return fmt.Sprintf("%s|%s|%s|%s", i.Path, i.FullPath, i.CallPath, i.Package)
}
