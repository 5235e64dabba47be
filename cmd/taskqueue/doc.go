// Package main hosts the taskqueue CLI entrypoint and command graph.
//
// The Cobra command tree opens the task database named by the configuration,
// wraps it in a queue engine, and renders results as tables or JSON. Every
// invocation is a short-lived process; cooperating processes coordinate
// through the shared SQLite database alone.
//
// Keep this package lean: behaviour belongs in internal/engine and
// internal/queue, and commands only parse flags and format output.
package main
