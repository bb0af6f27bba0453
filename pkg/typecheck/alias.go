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

// Package typecheck implements the external type-extractor and
// type-checker subprocess contracts (§6), plus the producer/consumer
// type-alias naming convention that pairs them up by identifier.
package typecheck

import (
	"fmt"
	"regexp"
	"strings"
)

var interpolationSegment = regexp.MustCompile(`\$\{([^}]*)\}`)

// ProducerAlias builds the `{Method}{PascalPath}ResponseProducer` alias
// for an endpoint.
func ProducerAlias(method, path string) string {
	return fmt.Sprintf("%s%sResponseProducer", strings.ToUpper(method), PascalPath(path))
}

// ConsumerAlias builds the `{Method}{PascalPath}ResponseConsumerCall{N}`
// alias for the Nth consumer of a given method+path.
func ConsumerAlias(method, path string, n int) string {
	return fmt.Sprintf("%s%sResponseConsumerCall%d", strings.ToUpper(method), PascalPath(path), n)
}

// LocationFallbackAlias builds the `ResponseParsingConsumerL<line>C<col>`
// alias used for consumers without a resolvable URL (pure `.json()`
// locations). These are never matched by a producer but are still
// carried in the artifact.
func LocationFallbackAlias(line, column int) string {
	return fmt.Sprintf("ResponseParsingConsumerL%dC%d", line, column)
}

// PascalPath PascalCases every path segment: `:param` segments become
// `By<Pascal(param)>`; `${expr}` template interpolations collapse to
// their rightmost segment and are PascalCased with no `By` prefix, so
// `/orders/${orderId}` gives `OrdersOrderId` while `/orders/:orderId`
// gives `OrdersByOrderId`.
func PascalPath(path string) string {
	path = interpolationSegment.ReplaceAllStringFunc(path, func(match string) string {
		inner := interpolationSegment.FindStringSubmatch(match)[1]
		segs := strings.Split(inner, ".")
		return segs[len(segs)-1]
	})

	var b strings.Builder
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ":") {
			b.WriteString("By")
			b.WriteString(pascalCase(strings.TrimSuffix(seg[1:], "?")))
			continue
		}
		b.WriteString(pascalCase(seg))
	}
	return b.String()
}

func pascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
