// Package state keeps per-user review sessions in memory.
//
// A session records whether the user is expected to send review text next
// and when their last review was accepted for delivery. Sessions are created
// lazily and live for the lifetime of the process.
package state
