// Package notifications delivers task events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Delivery runs on a Dispatcher so callers that enqueue work never
// wait on the network.
package notifications
