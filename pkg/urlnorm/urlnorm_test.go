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

package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_TemplateParams(t *testing.T) {
	out := Normalize("/users/${a.b.c}", Config{})
	require.Equal(t, KindMatchable, out.Kind)
	require.Equal(t, "/users/:c", out.Path)

	out = Normalize("/users/${user.id}", Config{})
	require.Equal(t, "/users/:id", out.Path)
}

func TestNormalize_Idempotent(t *testing.T) {
	cfg := Config{InternalDomains: []string{"api.internal"}}
	first := Normalize("https://api.internal/orders/${orderId}", cfg)
	require.Equal(t, KindMatchable, first.Kind)

	second := Normalize(first.Path, cfg)
	require.Equal(t, first, second)
}

func TestNormalize_ExternalDomainSkipped(t *testing.T) {
	cfg := Config{ExternalDomains: []string{"api.stripe.com"}}
	out := Normalize("https://api.stripe.com/v1/charges", cfg)
	require.Equal(t, KindSkip, out.Kind)
}

func TestNormalize_WildcardExternalDomain(t *testing.T) {
	cfg := Config{ExternalDomains: []string{"*.stripe.com"}}
	out := Normalize("https://api.stripe.com/v1/charges", cfg)
	require.Equal(t, KindSkip, out.Kind)
}

func TestNormalize_EnvVarInternal(t *testing.T) {
	cfg := Config{InternalEnvVars: []string{"ORDER_SERVICE_URL"}}
	out := Normalize("ENV_VAR:ORDER_SERVICE_URL:/orders/${orderId}", cfg)
	require.Equal(t, KindMatchable, out.Kind)
	require.Equal(t, "/orders/:orderId", out.Path)
	require.Equal(t, ClassificationInternal, out.Classification)
}

func TestNormalize_EnvVarExternal(t *testing.T) {
	cfg := Config{ExternalEnvVars: []string{"STRIPE_URL"}}
	out := Normalize("ENV_VAR:STRIPE_URL:/v1/charges", cfg)
	require.Equal(t, KindSkip, out.Kind)
}

func TestNormalize_EnvVarUnknownSuggestion(t *testing.T) {
	out := Normalize("ENV_VAR:MYSTERY_URL:/foo", Config{})
	require.Equal(t, KindEnvVarSuggestion, out.Kind)
	require.Equal(t, "MYSTERY_URL", out.EnvVarName)
}

func TestNormalize_CollapsesSlashesAndTrailingSlash(t *testing.T) {
	out := Normalize("/api//v1/users/?x=1#frag", Config{})
	require.Equal(t, "/api/v1/users", out.Path)
}

func TestNormalize_RootPathKept(t *testing.T) {
	out := Normalize("/", Config{})
	require.Equal(t, "/", out.Path)
}

func TestReconstructTemplate(t *testing.T) {
	got := ReconstructTemplate([]TemplateChunk{
		{Text: "https://api.example.com/orders/"},
		{IsExpr: true, IsIdentifierPath: true, Text: "orderId"},
	})
	require.Equal(t, "https://api.example.com/orders/${orderId}", got)
}
