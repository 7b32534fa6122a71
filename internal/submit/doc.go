// Package submit is the write side of the pipeline: uploads, replacements,
// retries, and removals all pass through the gateway so the artifact store,
// the catalog, and the job queue are always touched in the same order.
package submit
