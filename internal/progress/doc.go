// Package progress defines the reporting capability injected into jobs and
// segment workers, with terminal progress bar and no-op implementations.
package progress
