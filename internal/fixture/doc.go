// Package fixture serves an in-memory copy of the catering admin API for
// local demos and end-to-end tests.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/{grid}/list   rows filtered by query parameters
//	POST /api/{grid}/save   {"changes": [...]} upserted by identity
//
// List responses deliberately use the different envelopes the real API has
// been seen to produce. A save whose change lacks an identity value is
// answered with {"success": false} and applies nothing.
package fixture
