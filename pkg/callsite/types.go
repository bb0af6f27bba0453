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

// Package callsite implements the call-site extraction pass (C2): one
// uniform object.property(args) record per member call, plus imported
// symbols and the fetch-to-json() correlation described in spec §4.2.
package callsite

import "fmt"

// Location is a file:line:column source position.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// ImportKind discriminates the three import shapes C2 records.
type ImportKind string

const (
	ImportNamed     ImportKind = "named"
	ImportDefault   ImportKind = "default"
	ImportNamespace ImportKind = "namespace"
)

// DefaultExportSentinel is the synthetic exported-name used for default
// imports, which have no named export identifier of their own.
const DefaultExportSentinel = "default"

// NamespaceExportSentinel is the synthetic exported-name used for
// namespace imports (`import * as ns from ...`).
const NamespaceExportSentinel = "*"

// ImportedSymbol is what a file imports from another module (spec §3).
type ImportedSymbol struct {
	LocalName    string     `json:"local_name"`
	Source       string     `json:"source"`
	ExportedName string     `json:"exported_name"`
	Kind         ImportKind `json:"kind"`
	File         string     `json:"file"`
}

// ArgumentKind is the closed sum type for a call-site argument (spec §3,
// design note: tagged variants over subclassing).
type ArgumentKind string

const (
	ArgStringLiteral   ArgumentKind = "string_literal"
	ArgTemplateLiteral ArgumentKind = "template_literal"
	ArgIdentifier      ArgumentKind = "identifier"
	ArgObject          ArgumentKind = "object"
	ArgFunction        ArgumentKind = "function"
	ArgOther           ArgumentKind = "other"
)

// Argument is one call-site argument descriptor. ObjectFields is
// populated only when an Object argument could be parsed structurally
// (string/identifier/number/boolean values keyed by plain identifier or
// string property names); anything else keeps the raw source in
// InlineSource only —
// the open question in spec §9 about structural-vs-raw-text arguments is
// resolved by this per-argument fallback rather than an enforced rule.
type Argument struct {
	Kind         ArgumentKind      `json:"kind"`
	LiteralValue string            `json:"literal_value,omitempty"`
	InlineSource string            `json:"inline_source,omitempty"`
	ObjectFields map[string]string `json:"object_fields,omitempty"`
}

// ResultType is a type annotation harvested from an enclosing
// `const x: T = <call>` declaration.
type ResultType struct {
	Text       string `json:"text"`
	ByteOffset int    `json:"byte_offset"`
}

// CorrelatedFetch captures the fetch(...) call that produced the object a
// later `.json()` call site was invoked on, within the same function
// scope.
type CorrelatedFetch struct {
	URL      string   `json:"url"`
	Method   string   `json:"method"`
	Location Location `json:"location"`
}

// CallSite is a single object.property(args) occurrence (spec §3).
type CallSite struct {
	CalleeObject   string           `json:"callee_object"`
	CalleeProperty string           `json:"callee_property"`
	Arguments      []Argument       `json:"arguments"`
	DefinitionText string           `json:"definition_text,omitempty"`
	Location       Location         `json:"location"`
	ResultType     *ResultType      `json:"result_type,omitempty"`
	CorrelatedFetch *CorrelatedFetch `json:"correlated_fetch,omitempty"`
}

// LeanCallSite is the trimmed projection of CallSite used for triage
// payloads, so agent-gateway requests stay small (spec §3).
type LeanCallSite struct {
	CalleeObject      string       `json:"callee_object"`
	CalleeProperty    string       `json:"callee_property"`
	FirstArgKind      ArgumentKind `json:"first_arg_kind,omitempty"`
	FirstArgLiteral   string       `json:"first_arg_literal,omitempty"`
	ArgCount          int          `json:"arg_count"`
	DefinitionText    string       `json:"definition_text,omitempty"`
	Location          Location     `json:"location"`
}

// Lean projects a CallSite down to its LeanCallSite form.
func (c CallSite) Lean() LeanCallSite {
	lean := LeanCallSite{
		CalleeObject:   c.CalleeObject,
		CalleeProperty: c.CalleeProperty,
		ArgCount:       len(c.Arguments),
		DefinitionText: c.DefinitionText,
		Location:       c.Location,
	}
	if len(c.Arguments) > 0 {
		lean.FirstArgKind = c.Arguments[0].Kind
		lean.FirstArgLiteral = c.Arguments[0].LiteralValue
	}
	return lean
}

// ExtractResult is the output of a single file's C2 pass.
type ExtractResult struct {
	CallSites []CallSite
	Imports   []ImportedSymbol
}
