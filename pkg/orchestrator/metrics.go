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

package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the orchestrator's Prometheus collectors. Registered
// exactly once per process via NewMetrics, mirroring the ingestion
// pipeline's sync.Once-guarded singleton so repeated AnalyzeRepo/
// CombineAndAnalyze calls in the same process don't panic on duplicate
// registration.
type Metrics struct {
	FilesParsed   prometheus.Counter
	ParseWarnings prometheus.Counter
	AgentRequests *prometheus.CounterVec
	AgentRetries  prometheus.Counter
	IssuesEmitted *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide Metrics singleton, registering its
// collectors with reg on first call. Subsequent calls ignore reg and
// return the same instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		m := &Metrics{
			FilesParsed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carrick",
				Name:      "files_parsed_total",
				Help:      "Source files parsed by the syntax front end.",
			}),
			ParseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carrick",
				Name:      "parse_warnings_total",
				Help:      "Non-fatal syntax warnings emitted during parsing.",
			}),
			AgentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "carrick",
				Name:      "agent_requests_total",
				Help:      "Classification requests issued, by schema.",
			}, []string{"schema"}),
			AgentRetries: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "carrick",
				Name:      "agent_retries_total",
				Help:      "Transient classification retries.",
			}),
			IssuesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "carrick",
				Name:      "issues_emitted_total",
				Help:      "Issues emitted by the issue analyzer, by kind.",
			}, []string{"kind"}),
		}
		reg.MustRegister(m.FilesParsed, m.ParseWarnings, m.AgentRequests, m.AgentRetries, m.IssuesEmitted)
		metrics = m
	})
	return metrics
}
