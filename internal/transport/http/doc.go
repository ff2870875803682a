// Package http implements the HTTP handlers of the price comp host. Handlers
// stay thin: they parse the request, delegate to a service and render the
// result. Failures are rendered as RFC 7807 problem details through
// errors.ErrorHandler.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → Service
//	                                            ↓
//	HTTP Response ← JSON Rendering ←──── Result/Error
//
// # Endpoints
//
//	POST /api/pricecomp/runs                 upload a listings export and run the pipeline
//	GET  /api/pricecomp/runs/latest          the session's latest run
//	GET  /api/pricecomp/runs/latest/archive  download the latest archive
//	GET  /api/health[/ready|/live]           health probes
//	GET  /api/version                        build information
//
// # Sessions
//
// A run belongs to the browser session named by a cookie. PriceCompHandler
// issues the cookie on the first upload. Only one run per session executes
// at a time; a second upload while one is running gets 409 Conflict.
//
// # Testing
//
// PriceCompHandler depends on the RunService and RunStore interfaces so
// tests drive it with testify mocks and httptest recorders.
package http
