// Package session keeps per-browser-session state for the web host: the most
// recent completed run and whether a run is executing. State lives in memory
// only and is discarded when the session expires or the process exits.
package session
