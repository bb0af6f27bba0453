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

package typecheck

import "context"

// TypeInfo describes one composite type reference the extractor should
// turn into a standalone type declaration.
type TypeInfo struct {
	FilePath             string `json:"filePath"`
	StartPosition        int    `json:"startPosition"`
	CompositeTypeString  string `json:"compositeTypeString"`
	Alias                string `json:"alias"`
}

// ExtractionSummary is the extractor's JSON summary output.
type ExtractionSummary struct {
	TypesWritten int `json:"typesWritten"`
}

// TypeMismatch is one (endpoint, producerType, consumerType,
// compilerMessage, isCompatible) record from the type checker.
type TypeMismatch struct {
	Endpoint        string `json:"endpoint"`
	ProducerType    string `json:"producerType"`
	ConsumerType    string `json:"consumerType"`
	CompilerMessage string `json:"compilerMessage"`
	IsCompatible    bool   `json:"isCompatible"`
}

// Extractor invokes the type extractor subprocess once per repo.
// Failure is non-fatal: the repo's artifact proceeds without type info.
type Extractor interface {
	Extract(ctx context.Context, types []TypeInfo, tsconfigPath string, packageDeps map[string]string, outputPath string) (ExtractionSummary, error)
}

// Checker invokes the type checker subprocess once per cross-repo
// combine. A non-zero exit is treated as "no type mismatches available";
// the rest of the report is still produced.
type Checker interface {
	Check(ctx context.Context, typesDir string) ([]TypeMismatch, error)
}
