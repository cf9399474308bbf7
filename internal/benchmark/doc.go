// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation. They
// cover the hot paths of the runtime:
//   - descriptor parsing and schema validation
//   - the load phase over descriptor directories
//   - registry version and binding resolution
//   - settings layering
//   - the streaming execution pipeline
//
// To generate a PGO profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
