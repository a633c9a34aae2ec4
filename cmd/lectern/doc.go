// Command lectern is the CLI for the lectern transcription daemon. It
// runs the daemon process and talks to a running instance over its Unix
// socket for status, queue control, and caption queries.
package main
