// Package models defines the entities shared by every notekeeper backend.
//
// The same structs are persisted by all stores. Typed IDs ([NoteID], [UserID])
// wrap a UUID and know how to present themselves to each backend:
//
//   - PostgreSQL/GORM: driver.Valuer and sql.Scanner over the uuid column type
//   - SurrealDB: CBOR tag 8 record ids (notes:⟨uuid⟩, users:⟨uuid⟩)
//   - JSON: the canonical UUID string
//
// Parsing a malformed identifier fails with an error wrapping the UUID parser
// error; stores translate that into their invalid-identifier error.
package models
