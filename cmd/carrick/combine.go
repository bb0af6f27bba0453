// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/daveymoores/carrick/internal/config"
	"github.com/daveymoores/carrick/internal/errors"
	"github.com/daveymoores/carrick/internal/output"
	"github.com/daveymoores/carrick/internal/ui"
	"github.com/daveymoores/carrick/pkg/artifact"
	"github.com/daveymoores/carrick/pkg/issues"
	"github.com/daveymoores/carrick/pkg/orchestrator"
	"github.com/daveymoores/carrick/pkg/typecheck"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

// artifactList collects repeated --artifact flags into an ordered slice.
type artifactList []string

func (a *artifactList) String() string     { return fmt.Sprintf("%v", []string(*a)) }
func (a *artifactList) Set(v string) error { *a = append(*a, v); return nil }
func (a *artifactList) Type() string       { return "stringArray" }

// runCombine executes the 'combine' CLI command: loads per-repo artifacts
// produced by 'analyze', merges their call graphs, and reports cross-repo
// consistency issues.
//
// Flags:
//   - --artifact: artifact JSON path, repeatable (required, at least 2)
//   - --normalizer-config: path to a url-normalization rule file
//   - --checker-bin: path to the external type checker (skipped if empty)
//   - --types-dir: directory holding extracted composite type declarations
//   - --json: print issues as JSON
func runCombine(args []string) {
	fs := pflag.NewFlagSet("combine", pflag.ExitOnError)
	configPath := fs.String("config", "", "Pipeline config YAML file (optional)")
	var artifactPaths artifactList
	fs.Var(&artifactPaths, "artifact", "Path to a per-repo artifact JSON file (repeatable)")
	normalizerPath := fs.String("normalizer-config", "", "Path to a url-normalization rule file")
	checkerBin := fs.String("checker-bin", "", "Path to the external type checker binary (skipped if empty)")
	typesDir := fs.String("types-dir", ".carrick/types", "Directory holding extracted composite type declarations")
	jsonOutput := fs.Bool("json", false, "Print issues as JSON")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: carrick combine --artifact <file> [--artifact <file> ...] [options]

Merges per-repo artifacts produced by 'analyze' and reports cross-repo
API consistency issues: missing endpoints, orphaned endpoints, method
mismatches, dependency conflicts, and type mismatches.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if len(artifactPaths) < 2 {
		errors.FatalError(errors.NewInputError(
			"Not enough artifacts",
			"combine needs at least two --artifact files to find cross-repo issues",
			"pass --artifact <file> at least twice",
		), *jsonOutput)
	}

	if _, err := config.Load(*configPath); err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load pipeline config",
			err.Error(),
			"check --config "+*configPath,
			err,
		), *jsonOutput)
	}

	progress := NewProgressConfig(GlobalFlags{Quiet: *quiet || *jsonOutput, NoColor: *noColor})
	spinner := NewSpinner(progress, "Loading artifacts")

	artifacts := make([]artifact.PerRepoArtifact, 0, len(artifactPaths))
	for _, p := range artifactPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			errors.FatalError(errors.NewNotFoundError(
				"Cannot read artifact file",
				err.Error(),
				"check the path passed to --artifact "+p,
			), *jsonOutput)
		}
		a, err := artifact.Unmarshal(data)
		if err != nil {
			errors.FatalError(errors.NewParseError(
				"Cannot parse artifact file",
				err.Error(),
				p+" may be from an incompatible carrick version",
				err,
			), *jsonOutput)
		}
		artifacts = append(artifacts, a)
	}

	var normalizerCfg urlnorm.Config
	if *normalizerPath != "" {
		cfg, warnings, err := urlnorm.LoadConfig(*normalizerPath)
		if err != nil {
			errors.FatalError(errors.NewConfigError(
				"Cannot load normalizer config",
				err.Error(),
				"check --normalizer-config "+*normalizerPath,
				err,
			), *jsonOutput)
		}
		for _, w := range warnings {
			ui.Info("normalizer config: " + w)
		}
		normalizerCfg = cfg
	}

	var checker typecheck.Checker
	if *checkerBin != "" {
		checker = typecheck.NodeChecker{BinaryPath: *checkerBin}
	}

	found, err := orchestrator.CombineAndAnalyze(context.Background(), artifacts, checker, *typesDir, normalizerCfg)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Combining artifacts failed",
			err.Error(),
			"re-run with individual artifacts to isolate the failure",
			err,
		), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(map[string]any{
			"issue_count": len(found),
			"issues":      found,
		})
		return
	}
	printIssues(found)
}

func printIssues(found []issues.Issue) {
	if len(found) == 0 {
		ui.Info("No cross-repo issues found")
		return
	}
	ui.Header(fmt.Sprintf("Found %d cross-repo issue(s)", len(found)))
	for _, iss := range found {
		switch iss.Kind {
		case issues.KindMissingEndpoint:
			ui.Errorf("missing endpoint: %s %s (called from %s:%d)", iss.CallMethod, iss.CallPath, iss.SourceLocation.File, iss.SourceLocation.Line)
		case issues.KindOrphanEndpoint:
			fmt.Printf("  orphan endpoint: %s %s (no caller found)\n", iss.Method, iss.FullPath)
		case issues.KindMethodMismatch:
			ui.Errorf("method mismatch: %s expects %v, got %s", iss.Path, iss.SupportedMethods, iss.AttemptedMethod)
		case issues.KindEnvVarSuggestion:
			fmt.Printf("  env var suggestion: %s\n", iss.EnvVarName)
		case issues.KindDependencyConflict:
			fmt.Printf("  dependency conflict: %s (%s)\n", iss.Package, iss.Severity)
		default:
			fmt.Printf("  %s\n", iss.Kind)
		}
	}
}
