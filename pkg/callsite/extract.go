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

package callsite

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/daveymoores/carrick/pkg/syntax"
	"github.com/daveymoores/carrick/pkg/urlnorm"
)

// processEnvPattern recognizes a `process.env.NAME` or `process.env['NAME']`
// access, the two forms Node code uses to read an environment variable.
var processEnvPattern = regexp.MustCompile(`^process\.env\.([A-Za-z0-9_]+)$|^process\.env\[['"]([A-Za-z0-9_]+)['"]\]$`)

// processEnvVarName extracts the env var name from a process.env access
// expression's source text, if it matches.
func processEnvVarName(expr string) (string, bool) {
	m := processEnvPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// fetchInfo is what the extractor remembers about a fetch(...) call bound
// to a local variable, keyed by that variable's name within one function
// scope.
type fetchInfo struct {
	url    string
	method string
	loc    Location
}

// scope is a snapshot of local fetch bindings. Closures copy the parent
// scope by value at capture time (spec §9), so a map clone on function
// entry is sufficient; no scope ever needs to write back into its parent.
type scope map[string]fetchInfo

func (s scope) clone() scope {
	out := make(scope, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// walker carries per-file extraction state through the recursive descent.
type walker struct {
	tree       *syntax.Tree
	file       string
	result     ExtractResult
	pendingTyp map[uint32]ResultType // call_expression start byte -> annotation
}

// Extract runs the call-site extraction pass over a parsed file.
func Extract(tree *syntax.Tree) ExtractResult {
	w := &walker{
		tree:       tree,
		file:       tree.Path,
		pendingTyp: make(map[uint32]ResultType),
	}
	w.walk(tree.Root, scope{})
	return w.result
}

func (w *walker) loc(n *sitter.Node) Location {
	p := n.StartPoint()
	return Location{File: w.file, Line: int(p.Row) + 1, Column: int(p.Column)}
}

// isFunctionLike reports whether a node introduces a new scope boundary
// for fetch correlation.
func isFunctionLike(t string) bool {
	switch t {
	case "function_declaration", "function_expression", "arrow_function",
		"method_definition", "generator_function", "generator_function_declaration":
		return true
	default:
		return false
	}
}

func (w *walker) walk(n *sitter.Node, sc scope) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		w.extractImport(n)
	case "variable_declarator":
		w.handleDeclarator(n, sc)
	case "call_expression":
		w.handleCallExpression(n, sc)
	}

	if isFunctionLike(n.Type()) {
		body := n.ChildByFieldName("body")
		childScope := sc.clone()
		// Recurse into everything except the body with the parent scope
		// (parameter defaults, etc.), then the body with a cloned scope.
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			child := n.Child(i)
			if child == body {
				w.walk(child, childScope)
			} else {
				w.walk(child, sc)
			}
		}
		return
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		w.walk(n.Child(i), sc)
	}
}

// unwrapAwait strips an await_expression wrapper, returning the inner
// expression node.
func unwrapAwait(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "await_expression" {
		if inner := n.NamedChild(0); inner != nil {
			return inner
		}
	}
	return n
}

func (w *walker) handleDeclarator(n *sitter.Node, sc scope) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	varName := w.tree.Text(nameNode)

	// TypeScript's grammar models `const x: T` as the name node containing
	// the identifier, with a sibling "type_annotation" field reachable
	// from the declarator itself.
	var typeText string
	var typeOffset int
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		typeText = strings.TrimPrefix(w.tree.Text(typeNode), ":")
		typeText = strings.TrimSpace(typeText)
		typeOffset = int(typeNode.StartByte())
	}

	callNode := unwrapAwait(valueNode)
	if callNode != nil && callNode.Type() == "call_expression" {
		if typeText != "" {
			w.pendingTyp[callNode.StartByte()] = ResultType{Text: typeText, ByteOffset: typeOffset}
		}
		if info, ok := w.fetchCallInfo(callNode); ok {
			sc[varName] = info
		}
	}
}

// fetchCallInfo recognizes a fetch-family call (spec §4.2: an unqualified
// `fetch`, or a member access whose last segment is `fetch`) and extracts
// its URL/method.
func (w *walker) fetchCallInfo(call *sitter.Node) (fetchInfo, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return fetchInfo{}, false
	}

	isFetch := false
	switch callee.Type() {
	case "identifier":
		isFetch = w.tree.Text(callee) == "fetch"
	case "member_expression":
		prop := callee.ChildByFieldName("property")
		isFetch = prop != nil && w.tree.Text(prop) == "fetch"
	}
	if !isFetch {
		return fetchInfo{}, false
	}

	args := call.ChildByFieldName("arguments")
	url, method := "", "GET"
	if args != nil {
		count := int(args.NamedChildCount())
		if count > 0 {
			url = w.reconstructURLArg(args.NamedChild(0))
		}
		if count > 1 {
			method = w.methodFromOptions(args.NamedChild(1))
			if method == "" {
				method = "GET"
			}
		}
	}
	return fetchInfo{url: url, method: strings.ToUpper(method), loc: w.loc(call)}, true
}

// reconstructURLArg implements the URL-extraction rule from spec §4.2:
// string literals pass through verbatim, template literals are rebuilt
// with `${name}` placeholders, and a bare or leading `process.env.NAME`
// access is rewritten to the `ENV_VAR:NAME:` form urlnorm.Normalize
// recognizes.
func (w *walker) reconstructURLArg(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "string":
		return syntax.TrimQuotes(w.tree.Text(n))
	case "template_string":
		return w.reconstructTemplateURL(n)
	default:
		text := w.tree.Text(n)
		if name, ok := processEnvVarName(text); ok {
			return "ENV_VAR:" + name + ":"
		}
		return text
	}
}

// reconstructTemplateURL rebuilds a template literal's URL text, special
// casing a leading `${process.env.NAME}` interpolation into the
// `ENV_VAR:NAME:` form urlnorm.Normalize keys its first step on (spec §3:
// classified using the leading segment's env-var name if present).
func (w *walker) reconstructTemplateURL(n *sitter.Node) string {
	raw := w.tree.TemplateChunks(n)
	if len(raw) > 0 && raw[0].IsExpression {
		if name, ok := processEnvVarName(w.tree.Text(raw[0].Expr)); ok {
			rest := urlnorm.ReconstructTemplate(w.convertChunks(raw[1:]))
			return "ENV_VAR:" + name + ":" + rest
		}
	}
	return urlnorm.ReconstructTemplate(w.convertChunks(raw))
}

func (w *walker) templateChunks(n *sitter.Node) []urlnorm.TemplateChunk {
	return w.convertChunks(w.tree.TemplateChunks(n))
}

func (w *walker) convertChunks(raw []syntax.TemplateChunk) []urlnorm.TemplateChunk {
	var out []urlnorm.TemplateChunk
	for _, c := range raw {
		if !c.IsExpression {
			out = append(out, urlnorm.TemplateChunk{Text: c.Text})
			continue
		}
		text := w.tree.Text(c.Expr)
		isPath := c.Expr.Type() == "identifier" || c.Expr.Type() == "member_expression"
		out = append(out, urlnorm.TemplateChunk{IsExpr: true, Text: text, IsIdentifierPath: isPath})
	}
	return out
}

// methodFromOptions reads a `method` property off a fetch options object
// argument, if present.
func (w *walker) methodFromOptions(n *sitter.Node) string {
	if n == nil || n.Type() != "object" {
		return ""
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		if key == nil || w.tree.Text(key) != "method" {
			continue
		}
		val := pair.ChildByFieldName("value")
		if val == nil {
			continue
		}
		return strings.ToUpper(syntax.TrimQuotes(w.tree.Text(val)))
	}
	return ""
}

func (w *walker) handleCallExpression(n *sitter.Node, sc scope) {
	callee := n.ChildByFieldName("function")
	if callee == nil || callee.Type() != "member_expression" {
		return
	}

	object := callee.ChildByFieldName("object")
	property := callee.ChildByFieldName("property")
	if object == nil || property == nil {
		return
	}

	cs := CallSite{
		CalleeObject:   w.tree.Text(object),
		CalleeProperty: w.tree.Text(property),
		Location:       w.loc(n),
	}

	if argsNode := n.ChildByFieldName("arguments"); argsNode != nil {
		cs.Arguments = w.extractArguments(argsNode)
	}

	if rt, ok := w.pendingTyp[n.StartByte()]; ok {
		rtCopy := rt
		cs.ResultType = &rtCopy
		delete(w.pendingTyp, n.StartByte())
	}

	if property.Type() == "property_identifier" && w.tree.Text(property) == "json" && object.Type() == "identifier" {
		if fi, ok := sc[w.tree.Text(object)]; ok {
			cs.CorrelatedFetch = &CorrelatedFetch{URL: fi.url, Method: fi.method, Location: fi.loc}
		}
	}

	w.result.CallSites = append(w.result.CallSites, cs)
}

func (w *walker) extractArguments(argsNode *sitter.Node) []Argument {
	var out []Argument
	count := int(argsNode.NamedChildCount())
	for i := 0; i < count; i++ {
		out = append(out, w.classifyArgument(argsNode.NamedChild(i)))
	}
	return out
}

func (w *walker) classifyArgument(n *sitter.Node) Argument {
	raw := w.tree.Text(n)
	switch n.Type() {
	case "string":
		return Argument{Kind: ArgStringLiteral, LiteralValue: syntax.TrimQuotes(raw), InlineSource: raw}
	case "template_string":
		return Argument{Kind: ArgTemplateLiteral, LiteralValue: urlnorm.ReconstructTemplate(w.templateChunks(n)), InlineSource: raw}
	case "identifier":
		return Argument{Kind: ArgIdentifier, LiteralValue: raw, InlineSource: raw}
	case "arrow_function", "function_expression":
		return Argument{Kind: ArgFunction, InlineSource: raw}
	case "object":
		fields, structural := w.structuralObjectFields(n)
		arg := Argument{Kind: ArgObject, InlineSource: raw}
		if structural {
			arg.ObjectFields = fields
		}
		return arg
	default:
		return Argument{Kind: ArgOther, InlineSource: raw}
	}
}

// structuralObjectFields attempts to parse an object literal into a flat
// string map. Only `key: value` pairs whose value is a string, identifier,
// number, or boolean literal and whose key is a plain identifier or string
// qualify as structural; anything
// else (computed keys, spreads, nested objects) falls back to raw text
// only, per the per-argument resolution of spec §9's open question.
func (w *walker) structuralObjectFields(n *sitter.Node) (map[string]string, bool) {
	fields := make(map[string]string)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		pair := n.NamedChild(i)
		if pair.Type() != "pair" {
			return nil, false
		}
		key := pair.ChildByFieldName("key")
		val := pair.ChildByFieldName("value")
		if key == nil || val == nil {
			return nil, false
		}
		var keyText string
		switch key.Type() {
		case "property_identifier", "identifier":
			keyText = w.tree.Text(key)
		case "string":
			keyText = syntax.TrimQuotes(w.tree.Text(key))
		default:
			return nil, false
		}
		switch val.Type() {
		case "string":
			fields[keyText] = syntax.TrimQuotes(w.tree.Text(val))
		case "identifier", "number", "true", "false":
			fields[keyText] = w.tree.Text(val)
		default:
			return nil, false
		}
	}
	return fields, true
}

// exportSourceText is the `name as alias`/plain-name text helper shared by
// named-import-specifier handling below.
func exportSourceText(tree *syntax.Tree, specifier *sitter.Node) (local, exported string) {
	nameNode := specifier.ChildByFieldName("name")
	aliasNode := specifier.ChildByFieldName("alias")
	if nameNode == nil {
		return "", ""
	}
	exported = tree.Text(nameNode)
	if aliasNode != nil {
		return tree.Text(aliasNode), exported
	}
	return exported, exported
}

func (w *walker) extractImport(n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	source := syntax.TrimQuotes(w.tree.Text(sourceNode))

	clause := n.ChildByFieldName("import") // tree-sitter-typescript labels the clause "import" on some grammar versions
	if clause == nil {
		// Fall back to scanning named children for an import_clause node.
		count := int(n.NamedChildCount())
		for i := 0; i < count; i++ {
			if c := n.NamedChild(i); c.Type() == "import_clause" {
				clause = c
				break
			}
		}
	}
	if clause == nil {
		return
	}

	count := int(clause.NamedChildCount())
	for i := 0; i < count; i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			// Default import: `import Foo from '...'`.
			w.result.Imports = append(w.result.Imports, ImportedSymbol{
				LocalName:    w.tree.Text(child),
				Source:       source,
				ExportedName: DefaultExportSentinel,
				Kind:         ImportDefault,
				File:         w.file,
			})
		case "namespace_import":
			if nameNode := child.NamedChild(0); nameNode != nil {
				w.result.Imports = append(w.result.Imports, ImportedSymbol{
					LocalName:    w.tree.Text(nameNode),
					Source:       source,
					ExportedName: NamespaceExportSentinel,
					Kind:         ImportNamespace,
					File:         w.file,
				})
			}
		case "named_imports":
			specCount := int(child.NamedChildCount())
			for j := 0; j < specCount; j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				local, exported := exportSourceText(w.tree, spec)
				if local == "" {
					continue
				}
				w.result.Imports = append(w.result.Imports, ImportedSymbol{
					LocalName:    local,
					Source:       source,
					ExportedName: exported,
					Kind:         ImportNamed,
					File:         w.file,
				})
			}
		}
	}
}
