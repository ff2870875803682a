// Package app wires the price comp web application together and manages its
// lifecycle.
//
// # Initialization Flow
//
// NewApplication performs the full startup sequence:
//
//  1. Load configuration from defaults, an optional YAML file and PRICECOMP_* environment variables
//  2. Resolve and create the staging and log directories
//  3. Initialize structured logging and OpenTelemetry
//  4. Create the session store, the pipeline service and the health service
//  5. Build the chi router and the HTTP server
//
// New wires an application from dependencies the caller already built, which
// is what tests use.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run returns once ctx is cancelled. In-flight requests get
// Server.ShutdownTimeout to complete, the session sweeper stops and the
// telemetry providers are flushed.
package app
