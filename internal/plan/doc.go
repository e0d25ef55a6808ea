// Package plan converts a resolved manifest into a concrete download plan:
// which variant to fetch, which segment indices are in scope, and the remote
// name plus local path of every segment.
package plan
