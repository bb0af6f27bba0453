// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testing provides fixture-repo builders shared across Carrick's
// package tests.
package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// Repo is a temp-dir-backed fixture repository a test can populate with
// JS/TS source files before handing the root path to the orchestrator or
// any individual component under test.
type Repo struct {
	Root string
	t    *testing.T
}

// NewRepo creates an empty fixture repository rooted in a temp directory.
// The directory is removed automatically when the test finishes.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	return &Repo{Root: t.TempDir(), t: t}
}

// WriteFile writes a source file relative to the repo root, creating any
// parent directories it needs.
//
// Example:
//
//	repo := testing.NewRepo(t)
//	repo.WriteFile("app.ts", `const app = fwA(); app.use('/api', api);`)
func (r *Repo) WriteFile(relPath, content string) string {
	r.t.Helper()
	full := filepath.Join(r.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("create dir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", relPath, err)
	}
	return full
}

// WritePackageJSON writes a package.json with the given dependency map.
func (r *Repo) WritePackageJSON(deps map[string]string) string {
	r.t.Helper()
	var b []byte
	b = append(b, `{"name":"fixture","dependencies":{`...)
	first := true
	for name, version := range deps {
		if !first {
			b = append(b, ',')
		}
		first = false
		b = append(b, '"')
		b = append(b, name...)
		b = append(b, `":"`...)
		b = append(b, version...)
		b = append(b, '"')
	}
	b = append(b, "}}"...)
	return r.WriteFile("package.json", string(b))
}

// WriteNormalizerConfig writes a urlnorm config JSON file at the
// conventional .carrick/config.json location.
func (r *Repo) WriteNormalizerConfig(jsonBody string) string {
	r.t.Helper()
	return r.WriteFile(filepath.Join(".carrick", "config.json"), jsonBody)
}
