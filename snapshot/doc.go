// Package snapshot defines the persisted form of a recovery point: one
// pair's resting orders together with the log offset they reflect, encoded
// as a single value so state and offset are written atomically. It also
// holds an in-memory cache of aggregated book views for the read path.
//
// The codec is intentionally decoupled from order matching and from the
// storage layer. It only fixes the byte layout.
package snapshot
