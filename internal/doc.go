// Package internal documents the CourseRate SG server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, and routing
// - domain: catalog, review, and search rules
// - storage: repositories backed by Postgres (pgx)
// - jobs: River workers that keep review counts fresh
// - mcp: Model Context Protocol tools over the same services
// - auth, audit, config, metrics, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
