// Package store holds the collection's four entity sets (files, images, authors, tags)
// and persists them as one JSON snapshot.
//
// # Model
//
// Each collection maps a string key to a Record{Update, Data}:
//   - files:   "{id}_p{part}.{ext}" -> File
//   - images:  "{id}"               -> Image
//   - authors: "{id}"               -> Author
//   - tags:    "{name}"             -> Tag
//
// References point upwards only (File -> Image -> Author, Image -> Tag). The store never
// creates higher entities on its own; Prune recomputes each collection's live key set
// from the collection below it and drops everything unreferenced.
//
// # Persistence
//
// Save always sorts before writing (authors and images by numeric id, files by
// id*1000+part, tags by name). Load is tolerant of unknown fields, which are dropped,
// but rejects undecodable JSON and records whose key disagrees with their id.
//
// The Store is safe for concurrent use.
package store
