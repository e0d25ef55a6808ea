// Package batch parses download lists and runs their jobs through a bounded
// worker pool with immediate replenishment.
package batch
