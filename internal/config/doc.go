// Package config loads the configuration of the price comp host.
//
// # Configuration Sources
//
// Values are resolved in increasing order of precedence:
//
//  1. Default()
//  2. A YAML file: $PRICECOMP_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//  3. Environment variables
//
// # Environment Variables
//
// Variables are namespaced with PRICECOMP and follow the struct layout:
//
//	PRICECOMP_SERVER_PORT=8080
//	PRICECOMP_LOGGING_LEVEL=debug
//	PRICECOMP_UPLOAD_MAX_BYTES=67108864
//	PRICECOMP_SESSION_TTL=2h
//	PRICECOMP_TELEMETRY_TRACE_EXPORTER=stdout
//
// The pipeline itself has no configuration: bucket values, export columns,
// link templates and filename rules are fixed constants of dataprocessing and
// exporter.
package config
