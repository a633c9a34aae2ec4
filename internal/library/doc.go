// Package library models audiobooks and their chapter indexes. Chapters are
// produced by an external detection step and shipped as a JSON manifest next
// to the audio file; this package treats them as immutable references.
package library
