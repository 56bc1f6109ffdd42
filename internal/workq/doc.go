// Package workq provides a small execution engine of named work queues.
//
// A Queue runs submitted Work items one at a time, in submission order, on
// its own goroutine. A Work item is pending from the moment it's submitted
// until its handler returns, and can't be submitted again while pending.
//
// An Engine owns one Queue per numeric id, so work submitted for different
// ids always runs concurrently, while work for the same id is serialised.
package workq
