// Package collection exposes the collection snapshot over HTTP.
//
// Every endpoint is read-only. The snapshot is reloaded whenever the data file
// changes on disk, so the server reflects the latest CLI run without a restart.
//
// # HTTP Endpoints
//
//   - GET /collection : Export view, newest first (supports ?max_sanity=N).
//   - GET /collection/check : Data quality report (supports ?tags, ?title, ?bookmark, ?view).
//   - GET /collection/stats : Entity counts.
package collection
