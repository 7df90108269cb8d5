// Package domain defines the core business types for the campaign
// workflow engine.
//
// Types in this package are pure value objects with no behavior beyond
// lookups on static tables, no database dependencies, and no HTTP
// concerns. They are the shared language between the engine, the API
// layer, and the stores.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Pure functions on the types (Clone, CanTransition, ...) are allowed
//   - Constants and enums belong here
package domain
