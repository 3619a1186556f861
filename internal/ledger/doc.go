// Package ledger is the HTTP client for the catering admin API.
//
// Each grid has a list endpoint, fetched with GET and the grid's filter as
// query parameters, and a save endpoint that takes a POST of
//
//	{"changes": [{"id": 2, "qty": "25"}, ...]}
//
// and answers {"success": bool, "message": string}.
//
// The API is not consistent about list envelopes. A bare array, {"list": ...},
// {"data": ...}, {"data": {"data": ...}} and {"data": {"list": ...}} are all
// accepted here so that nothing above this package has to care. Numbers are
// kept as json.Number.
//
// Every request carries a fresh X-Request-ID and, when configured, a bearer
// token. A 401 maps to ErrUnauthorized; any other status of 400 or above
// becomes an *APIError carrying the server's message.
//
// Client.Source adapts the client to controller.DataSource for one grid.
package ledger
