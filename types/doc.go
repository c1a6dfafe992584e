// Package types defines the shared data model of the seqflow client:
// the unified error taxonomy, the canonical execution result, and the
// agent directory entry. It is the lowest-level package with no internal
// dependencies, so every other package can import it freely.
package types
