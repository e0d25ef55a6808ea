// Package fetch downloads planned segments with a bounded worker pool,
// resuming from files already on disk and recovering from expired stream
// URLs.
package fetch
