package storage

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"
	// BucketIndex maps a run id to its key in BucketRuns.
	BucketIndex = "run_ids"
)

var ErrNotFound = errors.New("history item not found")

// Store keeps run history in a bbolt file. Runs are keyed by an increasing
// sequence number, so cursor order is save order.
type Store struct {
	db *bbolt.DB
}

// Open creates the file and its parent directory if needed. bbolt holds an
// exclusive lock on the file; a second process waits up to a second and
// then fails.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating dirs for %s", path)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening history %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketIndex} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing history buckets")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns an id and timestamp when they are missing and appends item.
func (s *Store) Save(item *HistoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}

	data, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "encoding history item")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		index := tx.Bucket([]byte(BucketIndex))

		if index.Get([]byte(item.ID)) != nil {
			return errors.Errorf("history item %s already exists", item.ID)
		}
		seq, err := runs.NextSequence()
		if err != nil {
			return err
		}
		key := seqKey(seq)
		if err := runs.Put(key, data); err != nil {
			return err
		}
		return index.Put([]byte(item.ID), key)
	})
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(items) >= limit {
				break
			}
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return errors.Wrapf(err, "decoding history key %x", k)
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(BucketIndex)).Get([]byte(id))
		if key == nil {
			return ErrNotFound
		}
		v := tx.Bucket([]byte(BucketRuns)).Get(key)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Prune drops all but the newest keep runs and reports how many it removed.
func (s *Store) Prune(keep int) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(BucketRuns))
		index := tx.Bucket([]byte(BucketIndex))

		var stale [][]byte
		seen := 0
		c := runs.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			seen++
			if seen <= keep {
				continue
			}
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				if err := index.Delete([]byte(item.ID)); err != nil {
					return err
				}
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		// deleting while iterating skips keys in bbolt
		for _, k := range stale {
			if err := runs.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
