// Package stt abstracts the speech recognizer behind a streaming provider
// interface. Providers emit timed spans as recognition progresses, which is
// what makes upstream stall detection possible. The default provider shells
// out to whisper-cli; a scripted provider backs tests.
package stt
