// Package transcript persists chapter transcription state and time-stamped
// sentences in SQLite. The store is the durable record of which chapters are
// transcribed or in progress; the scheduler writes through it and the
// caption surface reads from it. Writes are serialized on a dedicated
// single-connection handle while reads run concurrently over WAL.
package transcript
