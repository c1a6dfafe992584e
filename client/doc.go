// Package client implements the orchestration layer over a remote
// sequential-workflow server: agent name resolution, idempotent workflow
// registration, the synchronous and streaming execution strategies with
// a bounded fallback ladder between them, and normalization of the
// server's response envelopes into one canonical result shape.
//
// One Client owns one agent directory cache and is safe for concurrent
// use, but the server-side register/delete window is not protected
// across processes: run a single writer per workflow id.
package client
