// Package storage keeps a catalog of dataset generation runs.
// It uses BoltDB as the underlying storage engine. Every run, successful or
// not, is stored as a JSON record keyed by its start time so runs can be
// listed chronologically and a dataset can be regenerated from its seed.
package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"classgen/internal/common"

	"go.etcd.io/bbolt"
)

const (
	runsBucket = "runs" // Bucket name for run records

	tsKeyLen = 20 // zero-padded decimal nanoseconds
)

// Store provides persistent storage for run records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (or creates) the catalog database inside dataPath.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, common.CatalogFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func timeKey(ts time.Time) []byte {
	return []byte(fmt.Sprintf("%0*d", tsKeyLen, ts.UnixNano()))
}

func compareKeys(a, b []byte) int {
	if len(a) > tsKeyLen {
		a = a[:tsKeyLen]
	}
	return bytes.Compare(a, b)
}
