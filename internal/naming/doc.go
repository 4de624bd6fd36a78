// Package naming derives output file names from input names and keeps
// outputs of one run from overwriting each other.
package naming
