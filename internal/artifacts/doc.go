// Package artifacts owns the filesystem layout under the media root:
// uploaded sources in movies/files, posters in movies/posters, and one HLS
// output directory per movie in movies/hls/<id>.
//
// Artifact names are generated, never user supplied. Deletes are idempotent
// by contract so the success path, the failure path, and the movie-deletion
// path can all clean up unconditionally without existence checks.
package artifacts
