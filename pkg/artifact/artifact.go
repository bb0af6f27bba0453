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

// Package artifact holds the per-repo value type (C8) assembled at the
// end of a single-repo analysis run and persisted for later cross-repo
// combination. It carries no behavior beyond serialization.
package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/daveymoores/carrick/pkg/mountgraph"
	"github.com/daveymoores/carrick/pkg/triage"
)

// SchemaVersion is bumped whenever a field is added or removed in a way
// that changes how an older reader must interpret the record. Readers
// ignore fields newer than their own version; absent optional fields
// deserialize as their zero value.
const SchemaVersion = 1

// PerRepoArtifact is the C8 value type: everything one repo's analysis
// run produced, ready for durable storage and later cross-repo merge.
type PerRepoArtifact struct {
	SchemaVersion int    `json:"schemaVersion"`
	RepoName      string `json:"repoName"`
	CommitHash    string `json:"commitHash"`
	UpdatedAt     string `json:"updatedAt"` // RFC 3339; stamped by the caller, never time.Now() here

	Endpoints []triage.HttpEndpoint      `json:"endpoints"`
	Calls     []triage.DataFetchingCall  `json:"calls"`
	Mounts    []triage.MountRelationship `json:"mounts"`

	Graph mountgraph.Graph `json:"graph"`

	PackageDependencies map[string]string `json:"packageDependencies"`
	NormalizerConfig    json.RawMessage   `json:"normalizerConfig,omitempty"`
}

// New assembles a PerRepoArtifact, stamping the current schema version.
func New(repoName, commitHash, updatedAt string, endpoints []triage.HttpEndpoint, calls []triage.DataFetchingCall, mounts []triage.MountRelationship, graph mountgraph.Graph, deps map[string]string, normalizerConfig json.RawMessage) PerRepoArtifact {
	return PerRepoArtifact{
		SchemaVersion:       SchemaVersion,
		RepoName:            repoName,
		CommitHash:          commitHash,
		UpdatedAt:           updatedAt,
		Endpoints:           endpoints,
		Calls:               calls,
		Mounts:              mounts,
		Graph:               graph,
		PackageDependencies: deps,
		NormalizerConfig:    normalizerConfig,
	}
}

// Marshal serializes the artifact to indented JSON.
func (a PerRepoArtifact) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("artifact: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a PerRepoArtifact. Fields absent in an older
// record (schemaVersion < SchemaVersion) decode to their zero value,
// which for every optional field here is also its "nothing observed"
// meaning, so no explicit version-branching is needed to stay
// forward-compatible.
func Unmarshal(data []byte) (PerRepoArtifact, error) {
	var a PerRepoArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return PerRepoArtifact{}, fmt.Errorf("artifact: unmarshal: %w", err)
	}
	return a, nil
}
