// Package assembly turns fetched segments into the final output file:
// per-stream concatenation, external muxing with container metadata, and
// cleanup of intermediates.
package assembly
