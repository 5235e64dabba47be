// Package engine is the public task queue API: it enforces the task state
// machine, applies defaults, orders ready work, and aggregates statistics on
// top of a queue.Store.
//
// Every transition reads the task, checks legality, and then asks the store
// for a conditional update keyed on the status it just read. A writer that
// loses the race receives a *queue.TransitionError naming the status that won;
// the engine never retries on its own. The engine holds no cache, so every
// call observes the database as of that call.
package engine
