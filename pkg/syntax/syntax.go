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

// Package syntax wraps tree-sitter parsing of JavaScript and TypeScript
// sources into a single entry point, with byte-offset to line/column
// translation shared by every downstream extractor.
package syntax

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect selects the grammar used to parse a file.
type Dialect string

const (
	DialectJavaScript Dialect = "javascript"
	DialectTypeScript Dialect = "typescript"
	DialectTSX        Dialect = "tsx"
)

// DialectForPath picks a grammar from a file extension. Returns false for
// extensions Carrick does not parse.
func DialectForPath(path string) (Dialect, bool) {
	switch {
	case hasSuffixAny(path, ".tsx"):
		return DialectTSX, true
	case hasSuffixAny(path, ".ts", ".mts", ".cts"):
		return DialectTypeScript, true
	case hasSuffixAny(path, ".js", ".jsx", ".mjs", ".cjs"):
		return DialectJavaScript, true
	default:
		return "", false
	}
}

func hasSuffixAny(path string, suffixes ...string) bool {
	for _, s := range suffixes {
		if len(path) >= len(s) && path[len(path)-len(s):] == s {
			return true
		}
	}
	return false
}

func languageFor(d Dialect) *sitter.Language {
	switch d {
	case DialectTypeScript:
		return typescript.GetLanguage()
	case DialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Warning describes a non-fatal problem found while parsing a file. Parse
// errors never abort extraction: a file with syntax errors is still
// extracted and carries a warning, and a file ParseFile rejects outright
// is skipped by the caller with a warning recorded instead.
type Warning struct {
	File    string
	Message string
}

// Tree is a parsed source file ready for downstream extraction.
type Tree struct {
	Path    string
	Dialect Dialect
	Source  []byte
	Root    *sitter.Node
	Index   *LineIndex

	tree *sitter.Tree
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// ParseFile parses a single source file. It never returns a fatal error for
// malformed input: syntax errors in the source are reported as warnings and
// the caller decides whether to skip the file.
func ParseFile(path string, content []byte) (*Tree, []Warning, error) {
	dialect, ok := DialectForPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("syntax: unsupported file extension for %s", path)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(dialect))

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, fmt.Errorf("syntax: parse %s: %w", path, err)
	}

	root := tree.RootNode()
	var warnings []Warning
	if root.HasError() {
		warnings = append(warnings, Warning{
			File:    path,
			Message: fmt.Sprintf("syntax errors found while parsing %s, extraction may be incomplete", path),
		})
	}

	return &Tree{
		Path:    path,
		Dialect: dialect,
		Source:  content,
		Root:    root,
		Index:   NewLineIndex(content),
		tree:    tree,
	}, warnings, nil
}

// Text returns the source text spanned by a node.
func (t *Tree) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(t.Source[n.StartByte():n.EndByte()])
}

// Position is a 1-indexed line and 0-indexed column, matching the
// convention tree-sitter itself uses for Point.
type Position struct {
	Line   int
	Column int
}

// Location pairs start/end positions for a span of source.
type Location struct {
	Start Position
	End   Position
}

// NodeLocation resolves a node's source span to line/column positions.
func (t *Tree) NodeLocation(n *sitter.Node) Location {
	sp := n.StartPoint()
	ep := n.EndPoint()
	return Location{
		Start: Position{Line: int(sp.Row) + 1, Column: int(sp.Column)},
		End:   Position{Line: int(ep.Row) + 1, Column: int(ep.Column)},
	}
}

// LineIndex precomputes newline offsets so byte offsets can be translated
// to line/column pairs without rescanning the source on every lookup.
type LineIndex struct {
	lineStarts []int
}

// NewLineIndex builds a LineIndex over the given source text.
func NewLineIndex(content []byte) *LineIndex {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{lineStarts: starts}
}

// Position translates a byte offset into a 1-indexed line and 0-indexed
// column via binary search over precomputed line-start offsets.
func (li *LineIndex) Position(offset int) Position {
	i := sort.Search(len(li.lineStarts), func(i int) bool {
		return li.lineStarts[i] > offset
	})
	line := i // i is 1-indexed count of line starts <= offset
	lineStart := 0
	if line-1 >= 0 && line-1 < len(li.lineStarts) {
		lineStart = li.lineStarts[line-1]
	}
	return Position{Line: line, Column: offset - lineStart}
}

// TemplateChunk is one piece of a template literal: either a literal text
// run or an interpolated expression node.
type TemplateChunk struct {
	IsExpression bool
	Text         string
	Expr         *sitter.Node
}

// TemplateChunks splits a template_literal node into alternating text and
// interpolation chunks, in source order.
func (t *Tree) TemplateChunks(n *sitter.Node) []TemplateChunk {
	var chunks []TemplateChunk
	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(i)
		switch child.Type() {
		case "template_substitution":
			if expr := child.NamedChild(0); expr != nil {
				chunks = append(chunks, TemplateChunk{IsExpression: true, Expr: expr})
			}
		case "`":
			continue
		default:
			text := t.Text(child)
			if text != "" {
				chunks = append(chunks, TemplateChunk{Text: text})
			}
		}
	}
	return chunks
}

// IsStringLikeLiteral reports whether a node is a plain string or template
// literal with no interpolation — i.e. its full text can be used as a raw
// value rather than requiring symbolic evaluation.
func IsStringLikeLiteral(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "string", "string_fragment":
		return true
	case "template_string":
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "template_substitution" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TrimQuotes strips a single layer of matching quote/backtick characters
// and returns the inner text.
func TrimQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

// Unescape resolves minimal JS escape sequences for string content that
// flows into URL normalization.
func Unescape(s string) string {
	if !bytes.ContainsRune([]byte(s), '\\') {
		return s
	}
	var out bytes.Buffer
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			default:
				out.WriteByte(s[i+1])
			}
			i++
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}
