// Package client contains the client-side building blocks that talk to the
// outside world.
//
// # Overview
//
//  1. HTTPClient, the metadata coordinator: it asks the server for a write
//     destination (Authorize) and turns an uploaded object into a persisted
//     record (Finalize). It shapes requests and validates responses only; it
//     never retries.
//  2. Local persistence bootstrap (InitDatabase, RunMigrations) wiring the
//     SQLite upload-history database with embedded goose migrations.
//
// # Error Handling
//
// Non-success answers surface as *AuthorizationError or *FinalizationError
// carrying the server's {message}. Connection failures are wrapped with
// ErrUnavailable so callers can match them with errors.Is.
package client
