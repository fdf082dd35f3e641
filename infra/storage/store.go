// Package storage is the durable key-value layer: admitted orders by id,
// book snapshots by pair and fee rates by asset, all in one pebble
// database. Every write is synced; a single-key put is the atomicity unit
// the recovery model relies on.
package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"mako/domain/dex"
)

// Key prefixes. Keys within a prefix sort lexicographically, which the
// prefix scans below rely on.
const (
	prefixOrder = "order/"
	prefixSnap  = "snap/"
	prefixRate  = "rate/"
)

// Store wraps a pebble database.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// -------------------- Snapshots --------------------

// PutSnapshot atomically replaces the snapshot value for a pair. The value
// carries both book state and its applied offset, so a crash can never
// separate the two.
func (s *Store) PutSnapshot(pairKey string, data []byte) error {
	return s.db.Set(snapKey(pairKey), data, pebble.Sync)
}

// GetSnapshot returns the snapshot value for a pair; ok is false when no
// snapshot has ever been written.
func (s *Store) GetSnapshot(pairKey string) (data []byte, ok bool, err error) {
	val, closer, err := s.db.Get(snapKey(pairKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// EachSnapshot iterates every persisted pair snapshot.
func (s *Store) EachSnapshot(fn func(pairKey string, data []byte) error) error {
	return s.scan(prefixSnap, func(k, v []byte) error {
		return fn(string(k), v)
	})
}

// -------------------- Orders --------------------

// PutOrder persists an admitted order's latest state.
func (s *Store) PutOrder(id dex.OrderID, data []byte) error {
	return s.db.Set(orderKey(id), data, pebble.Sync)
}

// GetOrder returns the stored state for an order id.
func (s *Store) GetOrder(id dex.OrderID) (data []byte, ok bool, err error) {
	val, closer, err := s.db.Get(orderKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// -------------------- Rates --------------------

// PutRate persists a fee-conversion rate (decimal string form).
func (s *Store) PutRate(asset dex.Asset, rate string) error {
	return s.db.Set(rateKey(asset), []byte(rate), pebble.Sync)
}

// DeleteRate removes a persisted rate.
func (s *Store) DeleteRate(asset dex.Asset) error {
	return s.db.Delete(rateKey(asset), pebble.Sync)
}

// EachRate iterates every persisted rate.
func (s *Store) EachRate(fn func(asset string, rate string) error) error {
	return s.scan(prefixRate, func(k, v []byte) error {
		return fn(string(k), string(v))
	})
}

// -------------------- Helpers --------------------

// scan visits every key under prefix; fn receives the key with the prefix
// stripped.
func (s *Store) scan(prefix string, fn func(key, val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "\xff"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := bytes.TrimPrefix(iter.Key(), []byte(prefix))
		if err := fn(key, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func snapKey(pairKey string) []byte {
	return []byte(prefixSnap + pairKey)
}

func orderKey(id dex.OrderID) []byte {
	return []byte(prefixOrder + id.String())
}

func rateKey(asset dex.Asset) []byte {
	return []byte(prefixRate + asset.String())
}
