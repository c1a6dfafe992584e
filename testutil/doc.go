// Package testutil provides shared test helpers: bounded test contexts
// and an in-process fake of the remote workflow server with scriptable
// directory, registration, and execution behavior.
package testutil
