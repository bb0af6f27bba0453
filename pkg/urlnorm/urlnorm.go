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

// Package urlnorm turns the many surface forms an outbound call URL can
// take — absolute URL, env-var templated form, template literal with
// interpolations — into a matchable path, classified internal/external
// against a per-repo configuration.
package urlnorm

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Classification distinguishes a matchable path's trust level.
type Classification string

const (
	ClassificationInternal Classification = "internal"
	ClassificationUnknown  Classification = "unknown"
)

// Outcome is the closed sum type C3 returns: exactly one of Matchable,
// Skip, or EnvVarSuggestion is populated; Kind says which.
type Outcome struct {
	Kind Kind

	// Matchable fields.
	Path           string
	Classification Classification

	// Skip fields.
	SkipReason string

	// EnvVarSuggestion fields.
	EnvVarName string
}

// Kind discriminates the Outcome union.
type Kind string

const (
	KindMatchable       Kind = "matchable"
	KindSkip            Kind = "skip"
	KindEnvVarSuggestion Kind = "env_var_suggestion"
)

// Config is the per-repo JSON normalizer configuration (spec §6). An
// absent config file means every list is empty.
type Config struct {
	InternalDomains []string `json:"internalDomains,omitempty"`
	ExternalDomains []string `json:"externalDomains,omitempty"`
	InternalEnvVars []string `json:"internalEnvVars,omitempty"`
	ExternalEnvVars []string `json:"externalEnvVars,omitempty"`
}

// LoadConfig reads the normalizer config from path. A missing file is not
// an error: it yields an empty Config, matching the ConfigError handling
// rule (malformed/absent config is treated as empty, with a warning).
func LoadConfig(path string) (Config, []string, error) {
	var warnings []string
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil, nil
		}
		return Config{}, nil, fmt.Errorf("urlnorm: read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		warnings = append(warnings, fmt.Sprintf("urlnorm: config %s is malformed, treating as empty: %v", path, err))
		return Config{}, warnings, nil
	}
	return cfg, warnings, nil
}

var envVarPrefix = regexp.MustCompile(`^ENV_VAR:([A-Za-z0-9_]+):(.*)$`)

// interpolation matches `${dotted.path}` sequences inside an
// already-reconstructed template string.
var interpolation = regexp.MustCompile(`\$\{([^}]*)\}`)

// Normalize implements the deterministic 5-step algorithm from spec §4.3.
func Normalize(rawURL string, cfg Config) Outcome {
	// Step 1: ENV_VAR:NAME: form.
	if m := envVarPrefix.FindStringSubmatch(rawURL); m != nil {
		name, suffix := m[1], m[2]
		if contains(cfg.ExternalEnvVars, name) {
			return Outcome{Kind: KindSkip, SkipReason: fmt.Sprintf("env var %s is external", name)}
		}
		if contains(cfg.InternalEnvVars, name) {
			return finishPath(suffix, ClassificationInternal)
		}
		return Outcome{Kind: KindEnvVarSuggestion, EnvVarName: name}
	}

	// Step 2: absolute URL with scheme.
	if host, path, ok := splitScheme(rawURL); ok {
		if domainMatches(cfg.ExternalDomains, host) {
			return Outcome{Kind: KindSkip, SkipReason: fmt.Sprintf("host %s is external", host)}
		}
		if domainMatches(cfg.InternalDomains, host) {
			return finishPath(path, ClassificationInternal)
		}
		return finishPath(path, ClassificationUnknown)
	}

	// Step 3: already a path.
	return finishPath(rawURL, ClassificationUnknown)
}

func finishPath(path string, class Classification) Outcome {
	cleaned := cleanPath(path)
	cleaned = replaceInterpolations(cleaned)
	return Outcome{Kind: KindMatchable, Path: cleaned, Classification: class}
}

// splitScheme extracts host/path from an absolute URL. Returns ok=false
// for anything without a recognizable `scheme://` prefix.
func splitScheme(raw string) (host, path string, ok bool) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return "", "", false
	}
	rest := raw[idx+3:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return rest, "/", true
	}
	return rest[:slash], rest[slash:], true
}

func domainMatches(domains []string, host string) bool {
	host = strings.ToLower(host)
	// Strip a port if present.
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	for _, d := range domains {
		d = strings.ToLower(d)
		if strings.HasPrefix(d, "*.") {
			suffix := d[1:] // ".example.com"
			if strings.HasSuffix(host, suffix) || host == d[2:] {
				return true
			}
			continue
		}
		if host == d {
			return true
		}
	}
	return false
}

// cleanPath strips query/fragment, collapses repeated slashes, trims a
// trailing slash (unless the path is exactly "/"), and ensures a leading
// slash.
func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var b strings.Builder
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	cleaned := b.String()
	if len(cleaned) > 1 && strings.HasSuffix(cleaned, "/") {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}

// replaceInterpolations turns every `${dotted.path}` into `:lastSegment`.
func replaceInterpolations(path string) string {
	return interpolation.ReplaceAllStringFunc(path, func(match string) string {
		inner := interpolation.FindStringSubmatch(match)[1]
		segs := strings.Split(inner, ".")
		last := segs[len(segs)-1]
		last = strings.TrimSpace(last)
		return ":" + last
	})
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ReconstructTemplate rebuilds a fetch-target string from a tree-sitter
// template literal's chunks (spec §4.2): literal text is kept verbatim,
// and each interpolation becomes `${name}` where name is the rightmost
// dotted segment of a pure identifier/member-access expression, or the
// raw expression text otherwise.
func ReconstructTemplate(chunks []TemplateChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if !c.IsExpr {
			b.WriteString(c.Text)
			continue
		}
		if c.IsIdentifierPath {
			segs := strings.Split(c.Text, ".")
			b.WriteString("${" + segs[len(segs)-1] + "}")
		} else {
			b.WriteString("${" + c.Text + "}")
		}
	}
	return b.String()
}

// TemplateChunk is a caller-supplied projection of a template literal
// chunk, decoupled from the syntax package's tree-sitter node type so
// this package stays a pure function of strings.
type TemplateChunk struct {
	IsExpr           bool
	Text             string
	IsIdentifierPath bool
}
