// Package http provides HTTP handlers and middleware for the campus-spots API.
//
// The router exposes the following endpoints:
//   - GET /api/buildings: cached building snapshots with computed open state
//     and room availability counts. `?refresh=1` merges the remote catalog
//     first; a failed refresh still answers from cache with
//     `refresh_failed: true`. `?user_id=` marks the user's favorites.
//   - GET /api/buildings/{id}/rooms: per-room detail statuses for one
//     building, each room available, occupied, or closed with its next
//     boundary time.
//   - PUT /api/buildings/{id}/favorite: records or removes a favorite.
//     Body: {"user_id","favorited"}. Returns 204 No Content.
//   - POST /api/refresh: full synchronization, terms then buildings.
//   - POST /api/cache/clear: drops every cached building; terms are kept.
//   - GET /health: liveness probe.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
