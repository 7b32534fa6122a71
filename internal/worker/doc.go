// Package worker runs the encode loop: dequeue a delivery, claim the movie
// record via compare-and-swap, invoke the encoder, and persist the terminal
// status with matching artifact cleanup.
//
// The pool guarantees two things per delivery: the delivery is always
// acknowledged, and once a record enters processing it always reaches ready
// or failed before the worker lets go of it. Duplicate deliveries are
// detected by the claim, not by the queue.
package worker
