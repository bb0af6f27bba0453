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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/daveymoores/carrick/internal/config"
	"github.com/daveymoores/carrick/internal/errors"
	"github.com/daveymoores/carrick/internal/output"
	"github.com/daveymoores/carrick/internal/ui"
	"github.com/daveymoores/carrick/pkg/agent"
	"github.com/daveymoores/carrick/pkg/orchestrator"
	"github.com/daveymoores/carrick/pkg/typecheck"
)

// runAnalyze executes the 'analyze' CLI command: discovers source files
// under a repo path, runs extraction and classification, builds the
// mount graph, and writes a PerRepoArtifact to disk.
//
// Flags:
//   - --repo-name: name this repo is known by across the organization (required)
//   - --out: artifact output path (default: <repo-name>.artifact.json)
//   - --backend: classification backend (ollama, openai, anthropic, mock)
//   - --extractor-bin: path to the external type extractor (skipped if empty)
//   - --json: print the result summary as JSON
//   - --quiet: suppress progress output
//   - --debug: enable debug logging
func runAnalyze(args []string) {
	fs := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	configPath := fs.String("config", "", "Pipeline config YAML file (optional; flags below override it)")
	repoName := fs.String("repo-name", "", "Name this repo is known by across the organization")
	outPath := fs.String("out", "", "Artifact output path (default: <repo-name>.artifact.json)")
	backend := fs.String("backend", "", "Classification backend: ollama, openai, anthropic, mock (default from --config, else mock)")
	baseURL := fs.String("backend-url", "", "Backend base URL")
	apiKey := fs.String("backend-api-key", "", "Backend API key")
	model := fs.String("backend-model", "", "Backend model name")
	extractorBin := fs.String("extractor-bin", "", "Path to the external type extractor binary (skipped if empty)")
	tsconfig := fs.String("tsconfig", "tsconfig.json", "tsconfig.json path passed to the extractor")
	typesOut := fs.String("types-out", ".carrick/types", "Directory the extractor writes composite type declarations to")
	jsonOutput := fs.Bool("json", false, "Print the result summary as JSON")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: carrick analyze [options] <repo-path>

Discovers JS/TS source files under <repo-path>, extracts call sites,
classifies them, builds the mount graph, and writes a per-repo artifact.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Missing repo path",
			"analyze requires exactly one positional argument",
			"carrick analyze [options] <repo-path>",
		), *jsonOutput)
	}
	if *repoName == "" {
		errors.FatalError(errors.NewInputError(
			"Missing --repo-name",
			"every artifact must be stamped with the name other repos reference it by",
			"pass --repo-name <name>",
		), *jsonOutput)
	}
	repoPath := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load pipeline config",
			err.Error(),
			"check --config "+*configPath,
			err,
		), *jsonOutput)
	}
	if !fs.Changed("backend") && *backend == "" {
		*backend = cfg.Agent.Backend
	}
	if !fs.Changed("backend-url") && *baseURL == "" {
		*baseURL = cfg.Agent.BaseURL
	}
	if !fs.Changed("backend-api-key") && *apiKey == "" {
		*apiKey = cfg.Agent.APIKey
	}
	if !fs.Changed("backend-model") && *model == "" {
		*model = cfg.Agent.Model
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	progress := NewProgressConfig(GlobalFlags{Quiet: *quiet || *jsonOutput, NoColor: *noColor})
	spinner := NewSpinner(progress, "Analyzing "+repoPath)

	classifier, err := agent.NewClassifier(agent.BackendConfig{
		Type:         *backend,
		BaseURL:      *baseURL,
		APIKey:       *apiKey,
		DefaultModel: *model,
	})
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot construct classification backend",
			err.Error(),
			"check --backend, --backend-url, and --backend-api-key",
			err,
		), *jsonOutput)
	}
	gw := agent.NewGateway(classifier, agent.GatewayConfig{Logger: logger})

	var extractor typecheck.Extractor
	if *extractorBin != "" {
		extractor = typecheck.NodeExtractor{BinaryPath: *extractorBin}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("analyze.signal", "signal", sig.String())
		cancel()
	}()

	art, err := orchestrator.AnalyzeRepo(ctx, repoPath, gw, orchestrator.Config{
		RepoName:        *repoName,
		Extractor:       extractor,
		TSConfigPath:    *tsconfig,
		TypesOutputPath: *typesOut,
		Concurrency:     cfg.Parse.Concurrency,
		Logger:          logger,
	})
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Repository analysis failed",
			err.Error(),
			"re-run with --debug for detailed logs",
			err,
		), *jsonOutput)
	}

	dest := *outPath
	if dest == "" {
		dest = *repoName + ".artifact.json"
	}
	data, err := art.Marshal()
	if err != nil {
		errors.FatalError(errors.NewInternalError("Cannot marshal artifact", err.Error(), "this is a bug", err), *jsonOutput)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		errors.FatalError(errors.NewSubprocessError(
			"Cannot write artifact file",
			err.Error(),
			"check write permissions for "+dest,
			err,
		), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(map[string]any{
			"artifact_path": dest,
			"repo_name":     art.RepoName,
			"endpoints":     len(art.Graph.Endpoints),
			"calls":         len(art.Graph.Calls),
			"mounts":        len(art.Mounts),
		})
		return
	}
	ui.Info(fmt.Sprintf("Wrote artifact to %s (%d endpoints, %d calls)", dest, len(art.Graph.Endpoints), len(art.Graph.Calls)))
}
