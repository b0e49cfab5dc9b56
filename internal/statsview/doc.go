// Package statsview is an optional package built only when the statsview
// build tag is present. It provides an HTTP server running locally offering
// runtime statistics, backed by github.com/go-echarts/statsview.
//
// After launch, graphical statistics are viewable at:
//
//	localhost:12600/debug/statsview
//
// The dashboard launcher in statsview.go is adapted from the statsview
// package in JetSetIlly/Gopher2600, which is licensed under the GNU General
// Public License v3.0 or later:
//
//	Gopher2600 is free software: you can redistribute it and/or modify
//	it under the terms of the GNU General Public License as published by
//	the Free Software Foundation, either version 3 of the License, or
//	(at your option) any later version.
//
//	Gopher2600 is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty of
//	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
//	GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with Gopher2600. If not, see <https://www.gnu.org/licenses/>.
package statsview
