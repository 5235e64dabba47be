// Package export serializes task lists for the CLI export command and reads
// them back.
//
// JSON and YAML carry metadata as nested documents; CSV flattens each task to
// one row and stores metadata as a JSON text cell. Every reader normalizes
// metadata through queue.NormalizeMetadata so numbers compare the same way
// they do when loaded from the store.
package export
