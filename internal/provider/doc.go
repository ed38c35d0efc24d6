// Package provider integrates the external provider registry into the
// ingestion pipeline.
//
// The registry is strictly read-only from the agent's point of view:
// provider and data mutations belong to a separate administrative surface.
// Payloads cross a parse-and-validate boundary on entry; malformed records
// are rejected and counted, never propagated.
package provider
