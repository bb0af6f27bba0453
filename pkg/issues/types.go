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

// Package issues implements the issue analyzer (C10): a pure function of
// the merged mount graph, per-repo package maps, normalizer config, and
// external type-check results, producing the tagged-union issue list
// surfaced to the reporter.
package issues

import (
	"github.com/daveymoores/carrick/pkg/callsite"
	"github.com/daveymoores/carrick/pkg/typecheck"
)

// Kind discriminates the Issue tagged union.
type Kind string

const (
	KindMissingEndpoint    Kind = "missing_endpoint"
	KindOrphanEndpoint     Kind = "orphan_endpoint"
	KindMethodMismatch     Kind = "method_mismatch"
	KindEnvVarSuggestion   Kind = "env_var_suggestion"
	KindDependencyConflict Kind = "dependency_conflict"
	KindTypeMismatch       Kind = "type_mismatch"
)

// Severity is a DependencyConflict's SemVer-driven severity.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// RepoVersion is one (repo, version) pair behind a DependencyConflict.
type RepoVersion struct {
	Repo    string
	Version string
}

// Issue is the closed tagged union surfaced to the reporter. Exactly the
// fields relevant to Kind are populated; the rest are zero.
type Issue struct {
	Kind Kind

	// MissingEndpoint
	CallMethod     string
	CallPath       string
	SourceLocation callsite.Location

	// OrphanEndpoint
	Method   string
	FullPath string

	// MethodMismatch
	Path              string
	SupportedMethods  []string
	AttemptedMethod   string

	// EnvVarSuggestion
	EnvVarName string

	// DependencyConflict
	Package  string
	Versions []RepoVersion
	Severity Severity

	// TypeMismatch
	Endpoint        string
	ProducerType    string
	ConsumerType    string
	CompilerMessage string
}

// FromTypeMismatch carries an external type checker record into the
// issue list verbatim.
func FromTypeMismatch(m typecheck.TypeMismatch) Issue {
	return Issue{
		Kind:            KindTypeMismatch,
		Endpoint:        m.Endpoint,
		ProducerType:    m.ProducerType,
		ConsumerType:    m.ConsumerType,
		CompilerMessage: m.CompilerMessage,
	}
}
