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

package triage

import (
	"strings"
	"sync"

	"github.com/daveymoores/carrick/pkg/callsite"
)

// RunSpecialists partitions sites by their triage label and runs the four
// specialists concurrently, joining on all four before returning. Labels
// are matched to sites by position (labels[i] classifies sites[i]), so the
// label slice must be in call-site order, as Triage returns it; sites past
// the end of labels are not classified. The endpoint, consumer and mount
// specialists validate their own inputs rather than trusting the label.
//
// ownerNames is the set of callee-object names known to define a router
// elsewhere in the repo; it drives the mount specialist's child-identifier
// rule.
func RunSpecialists(labels []TriageLabel, sites []callsite.CallSite, ownerNames map[string]bool) Results {
	var wg sync.WaitGroup
	var res Results

	wg.Add(4)
	go func() { defer wg.Done(); res.Endpoints = extractEndpoints(labels, sites) }()
	go func() { defer wg.Done(); res.Calls = extractConsumers(labels, sites) }()
	go func() { defer wg.Done(); res.Mounts = extractMounts(labels, sites, ownerNames) }()
	go func() { defer wg.Done(); res.Middleware = extractMiddleware(labels, sites) }()
	wg.Wait()

	return res
}

func selectLabel(labels []TriageLabel, sites []callsite.CallSite, want Label) []callsite.CallSite {
	var out []callsite.CallSite
	n := len(sites)
	if len(labels) < n {
		n = len(labels)
	}
	for i := 0; i < n; i++ {
		if labels[i].Label == want {
			out = append(out, sites[i])
		}
	}
	return out
}

// extractEndpoints implements the endpoint specialist: method uppercased
// from the callee property, path from the first string/template literal
// argument, owner from the callee object. Call sites with no recoverable
// path are dropped.
func extractEndpoints(labels []TriageLabel, sites []callsite.CallSite) []HttpEndpoint {
	var out []HttpEndpoint
	for _, cs := range selectLabel(labels, sites, LabelHTTPEndpoint) {
		path := firstLiteralArg(cs)
		if path == "" {
			continue
		}
		endpoint := HttpEndpoint{
			Method:   strings.ToUpper(cs.CalleeProperty),
			Path:     path,
			Owner:    cs.CalleeObject,
			Location: cs.Location,
		}
		if len(cs.Arguments) > 1 {
			endpoint.Handler = handlerRef(cs.Arguments[len(cs.Arguments)-1])
		}
		if cs.ResultType != nil {
			endpoint.ResponseType = cs.ResultType
		}
		out = append(out, endpoint)
	}
	return out
}

func handlerRef(arg callsite.Argument) string {
	if arg.Kind == callsite.ArgIdentifier {
		return arg.LiteralValue
	}
	return arg.InlineSource
}

func firstLiteralArg(cs callsite.CallSite) string {
	if len(cs.Arguments) == 0 {
		return ""
	}
	first := cs.Arguments[0]
	switch first.Kind {
	case callsite.ArgStringLiteral, callsite.ArgTemplateLiteral:
		return first.LiteralValue
	default:
		return ""
	}
}

// extractConsumers implements the consumer specialist. The correlated
// fetch, when present, is authoritative since it was lifted syntactically
// from the actual fetch call; otherwise the call site's own first
// argument and options object are used.
func extractConsumers(labels []TriageLabel, sites []callsite.CallSite) []DataFetchingCall {
	var out []DataFetchingCall
	for _, cs := range selectLabel(labels, sites, LabelDataFetchingCall) {
		call, ok := extractConsumer(cs)
		if ok {
			out = append(out, call)
		}
	}
	return out
}

func extractConsumer(cs callsite.CallSite) (DataFetchingCall, bool) {
	var url, method, library string

	if cs.CorrelatedFetch != nil {
		url = cs.CorrelatedFetch.URL
		method = cs.CorrelatedFetch.Method
		library = "fetch"
	} else {
		url = firstLiteralArg(cs)
		library = cs.CalleeObject
		if library == "" {
			library = cs.CalleeProperty
		}
		method = methodFromArguments(cs.Arguments)
	}

	if url == "" {
		return DataFetchingCall{}, false
	}
	if method == "" {
		method = "GET"
	}

	call := DataFetchingCall{
		Library:  library,
		URL:      url,
		Method:   strings.ToUpper(method),
		Location: cs.Location,
	}
	if cs.ResultType != nil {
		call.ExpectedType = cs.ResultType
	}
	return call, true
}

func methodFromArguments(args []callsite.Argument) string {
	for _, arg := range args {
		if arg.Kind != callsite.ArgObject || arg.ObjectFields == nil {
			continue
		}
		if m, ok := arg.ObjectFields["method"]; ok {
			return m
		}
	}
	return ""
}

// extractMounts implements the mount specialist. The child is the first
// identifier argument that names a known router owner elsewhere in the
// repo; the prefix is the first string-literal argument, or "" if absent.
func extractMounts(labels []TriageLabel, sites []callsite.CallSite, ownerNames map[string]bool) []MountRelationship {
	var out []MountRelationship
	for _, cs := range selectLabel(labels, sites, LabelRouterMount) {
		var child, prefix string
		for _, arg := range cs.Arguments {
			switch arg.Kind {
			case callsite.ArgIdentifier:
				if child == "" && ownerNames[arg.LiteralValue] {
					child = arg.LiteralValue
				}
			case callsite.ArgStringLiteral:
				if prefix == "" {
					prefix = arg.LiteralValue
				}
			}
		}
		if child == "" {
			continue
		}
		out = append(out, MountRelationship{
			Parent:   cs.CalleeObject,
			Child:    child,
			Prefix:   prefix,
			Location: cs.Location,
		})
	}
	return out
}

// extractMiddleware implements the middleware specialist: a bare
// registration record feeding only the mount graph's node set.
func extractMiddleware(labels []TriageLabel, sites []callsite.CallSite) []MiddlewareRegistration {
	var out []MiddlewareRegistration
	for _, cs := range selectLabel(labels, sites, LabelMiddleware) {
		reg := MiddlewareRegistration{Owner: cs.CalleeObject, Location: cs.Location}
		for _, arg := range cs.Arguments {
			switch arg.Kind {
			case callsite.ArgIdentifier:
				if reg.Symbol == "" {
					reg.Symbol = arg.LiteralValue
				}
			case callsite.ArgStringLiteral:
				if reg.Path == "" {
					reg.Path = arg.LiteralValue
				}
			}
		}
		out = append(out, reg)
	}
	return out
}
