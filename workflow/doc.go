// Package workflow defines the in-memory pipeline model: ordered steps
// bound to named agents, plus a fluent builder and prebuilt pipeline
// templates. The model performs no I/O and never stores server-issued
// agent ids; name resolution and the wire format belong to the client
// package.
package workflow
