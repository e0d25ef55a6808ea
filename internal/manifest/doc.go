// Package manifest resolves a title locator into an immutable view of the
// remote title: its resolution ladder, scene boundaries, segment geometry,
// and display metadata. Loosely structured delivery and DASH documents are
// converted into explicit value types at this boundary so missing required
// fields fail fast with a manifest error.
package manifest
