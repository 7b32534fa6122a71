// Package encoding wraps invocation of the external ffmpeg binary as a
// single opaque operation with a defined success/failure contract.
//
// Encoding parameters (codec, segment duration, rendition count) are fixed
// configuration constants, never per-job input. Every process-level failure
// is normalized into the returned error, and a reported success is verified
// against the manifest on disk before it is believed.
package encoding
