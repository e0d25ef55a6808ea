// Package client provides the retrying HTTP session used for manifest,
// metadata, and segment requests, including proxy routing with an optional
// metadata-only mode.
package client
