// Package pagination drives windowed browsing of the anime catalog.
//
// The catalog API is queried in chunks of Geometry.ChunkSize items while the
// browse view shows Geometry.DisplaySize items per page. Stepping inside a
// chunk is a pure window change; stepping across a chunk boundary issues a
// new fetch.
//
// Example usage:
//
//	ctrl, err := pagination.NewController(catalogClient, pagination.DefaultConfig(), logger)
//	ctrl.OnChange(render)
//	ctrl.Start(catalog.FilterSet{Genre: "Action"})
//	ctrl.Next()
//
// The state machine:
//   - Idle holds a chunk and a display page inside it
//   - Fetching waits for one tagged (filters, chunk) response
//   - Error keeps the last idle position until Retry or Dismiss
//
// Reduce is pure and never performs I/O. Controller wraps it with
// background fetches; a response is applied only while its tag matches the
// current fetch target, so the last request always wins.
//
// Warmer fetches every chunk of a filter set in parallel to prime the
// response cache.
package pagination
