// Package cli provides the interactive mediadrop command-line client.
//
// It wires configuration, the local upload history, the metadata server
// client and the upload pipeline behind a small REPL. Batches run in the
// background; their progress is drawn as bars on a terminal and as plain
// lines otherwise, and every finished file is written to the history.
//
// Commands: upload, pause, resume, skip, status, history, help, exit.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
