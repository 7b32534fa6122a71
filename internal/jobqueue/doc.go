// Package jobqueue provides the durable delivery channel between movie
// submission and the encode workers.
//
// Jobs carry only a movie identifier; all job state lives on the catalog
// record. Delivery is at-least-once and best-effort FIFO: a lease that is
// never acknowledged is redelivered after the lease timeout, and consumers
// are expected to detect duplicates through the catalog's compare-and-swap
// claim rather than through the queue.
package jobqueue
