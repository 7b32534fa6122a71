// Package services defines shared utilities consumed by the worker and the
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp movie IDs and correlation identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (not found vs transient vs terminal) consistently across the pipeline.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
