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

package mountgraph

import (
	"strings"

	"github.com/daveymoores/carrick/pkg/urlnorm"
)

// EnvVarSuggestion is the side channel Match reports through when
// normalization recognizes the call target as an env-var form that isn't
// yet classified internal or external.
type EnvVarSuggestion struct {
	EnvVarName string
	RawURL     string
}

// Match finds resolved endpoints whose full path matches callPathOrURL
// after C3 normalization, per C7's matching API. A Skip normalization
// outcome yields no endpoints and no suggestion. An EnvVarSuggestion
// outcome yields no endpoints, plus a suggestion the caller aggregates.
func (g Graph) Match(callMethod, callPathOrURL string, cfg urlnorm.Config) (MatchResult, *EnvVarSuggestion) {
	outcome := urlnorm.Normalize(callPathOrURL, cfg)

	switch outcome.Kind {
	case urlnorm.KindSkip:
		return MatchResult{}, nil
	case urlnorm.KindEnvVarSuggestion:
		return MatchResult{}, &EnvVarSuggestion{EnvVarName: outcome.EnvVarName, RawURL: callPathOrURL}
	}

	method := strings.ToUpper(callMethod)
	var result MatchResult
	for _, ep := range g.Endpoints {
		if !segmentsMatch(ep.FullPath, outcome.Path) {
			continue
		}
		if ep.Method == method {
			result.Endpoints = append(result.Endpoints, ep)
		} else {
			result.MethodMismatches = append(result.MethodMismatches, ep)
		}
	}
	return result, nil
}

func segmentsMatch(producerPath, consumerPath string) bool {
	producer := splitSegments(producerPath)
	consumer := splitSegments(consumerPath)
	return matchSegments(producer, consumer)
}

func splitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchSegments(producer, consumer []string) bool {
	if len(producer) == 0 && len(consumer) == 0 {
		return true
	}
	if len(producer) == 0 {
		return false
	}

	seg := producer[0]
	rest := producer[1:]

	switch {
	case seg == "**" || seg == "(.*)":
		// Zero or more consumer segments.
		for i := 0; i <= len(consumer); i++ {
			if matchSegments(rest, consumer[i:]) {
				return true
			}
		}
		return false
	case strings.HasSuffix(seg, "?") && strings.HasPrefix(seg, ":"):
		// Optional param: zero or one consumer segment.
		if matchSegments(rest, consumer) {
			return true
		}
		if len(consumer) > 0 && matchSegments(rest, consumer[1:]) {
			return true
		}
		return false
	case seg == "*":
		if len(consumer) == 0 {
			return false
		}
		return matchSegments(rest, consumer[1:])
	case strings.HasPrefix(seg, ":"):
		if len(consumer) == 0 {
			return false
		}
		return matchSegments(rest, consumer[1:])
	default:
		if len(consumer) == 0 || consumer[0] != seg {
			return false
		}
		return matchSegments(rest, consumer[1:])
	}
}
