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

package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daveymoores/carrick/pkg/artifact"
	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/triage"
)

func TestMerge_KeepsPackageMapsPerRepo(t *testing.T) {
	p := artifact.New("p", "c1", "2026-01-01T00:00:00Z", nil, nil, nil, mountgraph.Graph{}, map[string]string{"express": "5.0.0"}, nil)
	q := artifact.New("q", "c2", "2026-01-01T00:00:00Z", nil, nil, nil, mountgraph.Graph{}, map[string]string{"express": "4.18.0"}, nil)

	merged := Merge([]artifact.PerRepoArtifact{p, q})
	require.Equal(t, "5.0.0", merged.PackageDependencies["p"]["express"])
	require.Equal(t, "4.18.0", merged.PackageDependencies["q"]["express"])
}

func TestMerge_DedupsEndpointsAcrossRepos(t *testing.T) {
	ep := triage.HttpEndpoint{Method: "GET", Path: "/users", Owner: "app"}
	p := artifact.New("p", "c1", "t", []triage.HttpEndpoint{ep}, nil, nil, mountgraph.Graph{}, nil, nil)
	q := artifact.New("q", "c2", "t", []triage.HttpEndpoint{ep}, nil, nil, mountgraph.Graph{}, nil, nil)

	merged := Merge([]artifact.PerRepoArtifact{p, q})
	require.Len(t, merged.Endpoints, 1)
}
