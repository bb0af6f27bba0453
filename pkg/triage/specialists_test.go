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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/callsite"
)

func TestRunSpecialists_EndpointDropsCallSiteWithoutPath(t *testing.T) {
	sites := []callsite.CallSite{
		{CalleeObject: "app", CalleeProperty: "get", Arguments: []callsite.Argument{
			{Kind: callsite.ArgStringLiteral, LiteralValue: "/users"},
			{Kind: callsite.ArgIdentifier, LiteralValue: "handler"},
		}},
		{CalleeObject: "app", CalleeProperty: "get", Arguments: []callsite.Argument{
			{Kind: callsite.ArgIdentifier, LiteralValue: "dynamicPath"},
		}},
	}
	labels := []TriageLabel{{Label: LabelHTTPEndpoint}, {Label: LabelHTTPEndpoint}}

	res := RunSpecialists(labels, sites, nil)
	require.Len(t, res.Endpoints, 1)
	require.Equal(t, "GET", res.Endpoints[0].Method)
	require.Equal(t, "/users", res.Endpoints[0].Path)
	require.Equal(t, "app", res.Endpoints[0].Owner)
	require.Equal(t, "handler", res.Endpoints[0].Handler)
}

func TestRunSpecialists_ConsumerPrefersCorrelatedFetch(t *testing.T) {
	sites := []callsite.CallSite{
		{CalleeObject: "resp", CalleeProperty: "json",
			CorrelatedFetch: &callsite.CorrelatedFetch{URL: "https://api.example.com/orders", Method: "GET"},
		},
	}
	labels := []TriageLabel{{Label: LabelDataFetchingCall}}

	res := RunSpecialists(labels, sites, nil)
	require.Len(t, res.Calls, 1)
	require.Equal(t, "fetch", res.Calls[0].Library)
	require.Equal(t, "https://api.example.com/orders", res.Calls[0].URL)
	require.Equal(t, "GET", res.Calls[0].Method)
}

func TestRunSpecialists_ConsumerFallsBackToCallArguments(t *testing.T) {
	sites := []callsite.CallSite{
		{CalleeObject: "axios", CalleeProperty: "get", Arguments: []callsite.Argument{
			{Kind: callsite.ArgStringLiteral, LiteralValue: "/orders"},
		}},
	}
	labels := []TriageLabel{{Label: LabelDataFetchingCall}}

	res := RunSpecialists(labels, sites, nil)
	require.Len(t, res.Calls, 1)
	require.Equal(t, "axios", res.Calls[0].Library)
	require.Equal(t, "/orders", res.Calls[0].URL)
	require.Equal(t, "GET", res.Calls[0].Method)
}

func TestRunSpecialists_MountRequiresKnownOwnerChild(t *testing.T) {
	sites := []callsite.CallSite{
		{CalleeObject: "app", CalleeProperty: "use", Arguments: []callsite.Argument{
			{Kind: callsite.ArgStringLiteral, LiteralValue: "/api"},
			{Kind: callsite.ArgIdentifier, LiteralValue: "apiRouter"},
		}},
		{CalleeObject: "app", CalleeProperty: "use", Arguments: []callsite.Argument{
			{Kind: callsite.ArgIdentifier, LiteralValue: "unknownThing"},
		}},
	}
	labels := []TriageLabel{{Label: LabelRouterMount}, {Label: LabelRouterMount}}
	owners := map[string]bool{"apiRouter": true}

	res := RunSpecialists(labels, sites, owners)
	require.Len(t, res.Mounts, 1)
	require.Equal(t, "app", res.Mounts[0].Parent)
	require.Equal(t, "apiRouter", res.Mounts[0].Child)
	require.Equal(t, "/api", res.Mounts[0].Prefix)
}

func TestRunSpecialists_MiddlewareRecordsSymbolAndPath(t *testing.T) {
	sites := []callsite.CallSite{
		{CalleeObject: "app", CalleeProperty: "use", Arguments: []callsite.Argument{
			{Kind: callsite.ArgStringLiteral, LiteralValue: "/admin"},
			{Kind: callsite.ArgIdentifier, LiteralValue: "authMiddleware"},
		}},
	}
	labels := []TriageLabel{{Label: LabelMiddleware}}

	res := RunSpecialists(labels, sites, nil)
	require.Len(t, res.Middleware, 1)
	require.Equal(t, "authMiddleware", res.Middleware[0].Symbol)
	require.Equal(t, "/admin", res.Middleware[0].Path)
}
