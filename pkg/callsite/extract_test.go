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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/syntax"
)

func parse(t *testing.T, path, src string) ExtractResult {
	t.Helper()
	tree, warnings, err := syntax.ParseFile(path, []byte(src))
	require.NoError(t, err)
	require.Empty(t, warnings)
	defer tree.Close()
	return Extract(tree)
}

func TestExtract_MemberCallRecordsCalleeAndArgs(t *testing.T) {
	res := parse(t, "app.ts", `app.get('/users', handler);`)
	require.Len(t, res.CallSites, 1)
	cs := res.CallSites[0]
	require.Equal(t, "app", cs.CalleeObject)
	require.Equal(t, "get", cs.CalleeProperty)
	require.Len(t, cs.Arguments, 2)
	require.Equal(t, ArgStringLiteral, cs.Arguments[0].Kind)
	require.Equal(t, "/users", cs.Arguments[0].LiteralValue)
	require.Equal(t, ArgIdentifier, cs.Arguments[1].Kind)
}

func TestExtract_NestedMemberCalleeUsesRightmostProperty(t *testing.T) {
	res := parse(t, "app.ts", `api.v1.users.get('/', h);`)
	require.Len(t, res.CallSites, 1)
	cs := res.CallSites[0]
	require.Equal(t, "api.v1.users", cs.CalleeObject)
	require.Equal(t, "get", cs.CalleeProperty)
}

func TestExtract_ImportKinds(t *testing.T) {
	res := parse(t, "app.ts", `
import userRouter from './routes/users';
import * as ns from './ns';
import { a, b as c } from './named';
`)
	require.Len(t, res.Imports, 4)

	byLocal := map[string]ImportedSymbol{}
	for _, s := range res.Imports {
		byLocal[s.LocalName] = s
	}

	require.Equal(t, ImportDefault, byLocal["userRouter"].Kind)
	require.Equal(t, DefaultExportSentinel, byLocal["userRouter"].ExportedName)
	require.Equal(t, "./routes/users", byLocal["userRouter"].Source)

	require.Equal(t, ImportNamespace, byLocal["ns"].Kind)

	require.Equal(t, ImportNamed, byLocal["a"].Kind)
	require.Equal(t, "a", byLocal["a"].ExportedName)

	require.Equal(t, ImportNamed, byLocal["c"].Kind)
	require.Equal(t, "b", byLocal["c"].ExportedName)
}

func TestExtract_FetchJSONCorrelation(t *testing.T) {
	res := parse(t, "consumer.ts", `
async function load() {
  const resp = await fetch("https://api.example.com/orders/123");
  const data = await resp.json();
}
`)
	var jsonCall *CallSite
	for i := range res.CallSites {
		if res.CallSites[i].CalleeProperty == "json" {
			jsonCall = &res.CallSites[i]
		}
	}
	require.NotNil(t, jsonCall)
	require.NotNil(t, jsonCall.CorrelatedFetch)
	require.Equal(t, "https://api.example.com/orders/123", jsonCall.CorrelatedFetch.URL)
	require.Equal(t, "GET", jsonCall.CorrelatedFetch.Method)
}

func TestExtract_FetchCorrelationDoesNotCrossFunctionBoundary(t *testing.T) {
	res := parse(t, "consumer.ts", `
async function a() {
  const resp = await fetch("https://api.example.com/orders");
}
async function b() {
  const data = await resp.json();
}
`)
	for _, cs := range res.CallSites {
		if cs.CalleeProperty == "json" {
			require.Nil(t, cs.CorrelatedFetch)
		}
	}
}

func TestExtract_TemplateFetchURLReconstruction(t *testing.T) {
	res := parse(t, "consumer.ts", "async function load(orderId) {\n  const resp = await fetch(`https://api.example.com/orders/${orderId}`);\n  const data = await resp.json();\n}\n")
	var jsonCall *CallSite
	for i := range res.CallSites {
		if res.CallSites[i].CalleeProperty == "json" {
			jsonCall = &res.CallSites[i]
		}
	}
	require.NotNil(t, jsonCall)
	require.NotNil(t, jsonCall.CorrelatedFetch)
	require.Equal(t, "https://api.example.com/orders/${orderId}", jsonCall.CorrelatedFetch.URL)
}

func TestExtract_TemplateFetchURLLeadingEnvVarReconstruction(t *testing.T) {
	res := parse(t, "consumer.ts", "async function load(orderId) {\n  const resp = await fetch(`${process.env.ORDER_SERVICE_URL}/orders/${orderId}`);\n  const data = await resp.json();\n}\n")
	var jsonCall *CallSite
	for i := range res.CallSites {
		if res.CallSites[i].CalleeProperty == "json" {
			jsonCall = &res.CallSites[i]
		}
	}
	require.NotNil(t, jsonCall)
	require.NotNil(t, jsonCall.CorrelatedFetch)
	require.Equal(t, "ENV_VAR:ORDER_SERVICE_URL:/orders/${orderId}", jsonCall.CorrelatedFetch.URL)
}

func TestExtract_BareProcessEnvFetchArgReconstruction(t *testing.T) {
	res := parse(t, "consumer.ts", "async function load() {\n  const resp = await fetch(process.env.ORDER_SERVICE_URL);\n  const data = await resp.json();\n}\n")
	var jsonCall *CallSite
	for i := range res.CallSites {
		if res.CallSites[i].CalleeProperty == "json" {
			jsonCall = &res.CallSites[i]
		}
	}
	require.NotNil(t, jsonCall)
	require.NotNil(t, jsonCall.CorrelatedFetch)
	require.Equal(t, "ENV_VAR:ORDER_SERVICE_URL:", jsonCall.CorrelatedFetch.URL)
}

func TestExtract_BareIdentifierCallProducesNoCallSite(t *testing.T) {
	res := parse(t, "consumer.ts", `
async function load() {
  const data: Order[] = await fetchOrders();
}
`)
	require.Empty(t, res.CallSites)
}

func TestExtract_ResultTypeCaptureOnMemberCall(t *testing.T) {
	res := parse(t, "consumer.ts", `
async function load() {
  const data: Order[] = await client.fetchOrders();
}
`)
	require.Len(t, res.CallSites, 1)
	cs := res.CallSites[0]
	require.NotNil(t, cs.ResultType)
	require.Equal(t, "Order[]", cs.ResultType.Text)
}
