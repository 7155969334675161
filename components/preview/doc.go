// Package preview provides a small chi-based HTTP component that serves
// locally selected media files under revocable URLs so they can be opened in
// a browser before upload.
//
// Routes (relative to the mount point):
//
//	GET /previews/{id}  the file behind an issued URL, 404 once revoked
//	GET /metrics        Prometheus metrics for the registry in Options
//
// With an access key every route requires ?key=<access key>; issued URLs
// carry it.
package preview
