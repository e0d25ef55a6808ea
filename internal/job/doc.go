// Package job orchestrates a single title download from manifest resolution
// through segment fetching to final assembly, reporting the outcome as a
// JobResult instead of failing the caller.
package job
