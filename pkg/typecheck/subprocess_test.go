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

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixtureScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.sh")
	content := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestNodeExtractor_ParsesSummary(t *testing.T) {
	script := writeFixtureScript(t, `echo '{"typesWritten":3}'`)
	extractor := NodeExtractor{BinaryPath: script}

	summary, err := extractor.Extract(context.Background(), []TypeInfo{{Alias: "GetUsersResponseProducer"}}, "tsconfig.json", nil, "out/types.ts")
	require.NoError(t, err)
	require.Equal(t, 3, summary.TypesWritten)
}

func TestNodeExtractor_RejectsUnsafePath(t *testing.T) {
	extractor := NodeExtractor{BinaryPath: "ignored"}
	_, err := extractor.Extract(context.Background(), nil, "tsconfig.json; rm -rf /", nil, "out.ts")
	require.Error(t, err)
}

func TestNodeExtractor_NonZeroExitIsError(t *testing.T) {
	script := writeFixtureScript(t, `echo 'boom' 1>&2; exit 1`)
	extractor := NodeExtractor{BinaryPath: script}

	_, err := extractor.Extract(context.Background(), nil, "tsconfig.json", nil, "out.ts")
	require.Error(t, err)
}

func TestNodeChecker_ParsesMismatches(t *testing.T) {
	script := writeFixtureScript(t, `echo '[{"endpoint":"GET /users","producerType":"User","consumerType":"UserDto","compilerMessage":"shape mismatch","isCompatible":false}]'`)
	checker := NodeChecker{BinaryPath: script}

	mismatches, err := checker.Check(context.Background(), "types-dir")
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	require.Equal(t, "GET /users", mismatches[0].Endpoint)
	require.False(t, mismatches[0].IsCompatible)
}

func TestNodeChecker_NonZeroExitYieldsNoMismatchesNotError(t *testing.T) {
	script := writeFixtureScript(t, `exit 1`)
	checker := NodeChecker{BinaryPath: script}

	mismatches, err := checker.Check(context.Background(), "types-dir")
	require.NoError(t, err)
	require.Nil(t, mismatches)
}
