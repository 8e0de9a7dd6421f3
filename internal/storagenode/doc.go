// Package storagenode implements a storage node: a process that owns a flat
// in-memory key-value map, registers with exactly one gateway, and serves
// data operations routed to it by the gateway's ring.
//
// A Node runs two independent loops: the HTTP server answering put/get/
// delete/keys/health/stats requests, and a background heartbeat loop that
// registers (or re-registers, on any transport failure) with the configured
// gateway and then periodically reports liveness and key count.
//
// # Concurrency
//
// Registration state (running, registered, explicitlyStopped) lives in
// atomic.Bool fields, not a mutex; the data map's own thread-safety comes
// from internal/storage.Store. No lock is held across a network call to
// the gateway.
package storagenode
