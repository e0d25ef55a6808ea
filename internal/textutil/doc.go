// Package textutil provides filename sanitization and title formatting for
// output artifacts.
package textutil
