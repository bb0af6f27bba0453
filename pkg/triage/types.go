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

// Package triage implements call-site triage and the four specialist
// extractors (C6): a closed-label classification pass over LeanCallSites
// followed by endpoint, consumer, mount, and middleware specialists that
// each validate their own inputs rather than trusting the triage label.
package triage

import (
	"github.com/daveymoores/carrick/pkg/callsite"
)

// Label is the closed set of triage outcomes for a call site.
type Label string

const (
	LabelHTTPEndpoint      Label = "http_endpoint"
	LabelDataFetchingCall  Label = "data_fetching_call"
	LabelRouterMount       Label = "router_mount"
	LabelMiddleware        Label = "middleware"
	LabelIrrelevant        Label = "irrelevant"
)

// TriageLabel is one classification result, carrying a confidence hint
// that specialists may use but must not rely on.
type TriageLabel struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// HttpEndpoint is the endpoint specialist's extracted producer fact.
type HttpEndpoint struct {
	Method       string
	Path         string
	Handler      string
	Owner        string
	Location     callsite.Location
	ResponseType *callsite.ResultType
}

// DataFetchingCall is the consumer specialist's extracted consumer fact.
type DataFetchingCall struct {
	Library      string
	URL          string
	Method       string
	Location     callsite.Location
	ExpectedType *callsite.ResultType
}

// MountRelationship is a single parent.useLike(prefix, child) record.
type MountRelationship struct {
	Parent   string
	Child    string
	Prefix   string
	Location callsite.Location
}

// MiddlewareRegistration is a middleware registration record. It feeds
// only the mount graph's node set, never endpoint/call resolution.
type MiddlewareRegistration struct {
	Owner    string
	Symbol   string
	Path     string
	Location callsite.Location
}

// Results bundles everything the four specialists produced for one repo.
type Results struct {
	Endpoints  []HttpEndpoint
	Calls      []DataFetchingCall
	Mounts     []MountRelationship
	Middleware []MiddlewareRegistration
}
