// Command stitcher downloads segmented titles: it resolves a title's
// manifest, fetches the selected streams segment by segment, and assembles
// them into a single playable file.
package main
