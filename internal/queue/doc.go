// Package queue persists tasks in SQLite and defines the shared task model.
//
// The Store manages database connections, schema initialization, busy-retry
// policy, and the conditional status update that serializes concurrent
// writers. It knows nothing about which transitions are legal; the engine
// package owns that. Queries accept a Filter and one of two orderings so the
// engine can ask for "everything assigned to alice" or "what is ready to run
// next" without composing SQL itself.
//
// Several processes may open the same database file. Contended writes are
// retried with bounded exponential backoff and surface ErrStorageUnavailable
// once the budget is spent.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
