// Package deps checks availability of the external binaries the pipeline
// invokes.
package deps
