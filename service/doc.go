// Package service orchestrates the core components of the
// matching engine: order books, address actors, the durable
// store and the outbound event stream.
//
// It consumes the ordered command log, routes every command to
// the single worker owning that pair's book, and persists
// per-pair recovery points so a restart replays only the tail
// of the log.
package service
