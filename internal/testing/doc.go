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

// Package testing provides fixture-repo builders for Carrick's test
// suite: a temp-dir-backed Repo that tests populate with JS/TS source
// files before handing its root to the component under test.
//
// # Quick start
//
//	func TestMyFeature(t *testing.T) {
//	    repo := testing.NewRepo(t)
//	    repo.WriteFile("app.ts", `const app = fwA(); app.use('/api', api);`)
//	    // repo.Root is ready to hand to orchestrator.AnalyzeRepo
//	}
package testing
