package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// RunRecord describes one generate and export run
type RunRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	OutputPath  string    `json:"output_path"`
	Samples     int       `json:"samples"`
	Features    int       `json:"features"`
	Classes     int       `json:"classes"`
	Seed        uint64    `json:"seed"`
	ClassCounts []int     `json:"class_counts,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Succeeded reports whether the run wrote its dataset.
func (r RunRecord) Succeeded() bool {
	return r.Error == ""
}

// RecordRun stores a run record. Records with equal timestamps are kept apart
// by a per-bucket sequence suffix.
func (s *Store) RecordRun(record RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		key := fmt.Sprintf("%s_%010d", timeKey(record.Timestamp), seq)
		return b.Put([]byte(key), data)
	})
}

// GetRuns returns runs started within [start, end], oldest first.
func (s *Store) GetRuns(start, end time.Time) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		endKey := timeKey(end)

		for k, v := c.Seek(timeKey(start)); k != nil && compareKeys(k, endKey) <= 0; k, v = c.Next() {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

// GetRunsForPath returns every run that targeted path, oldest first.
func (s *Store) GetRunsForPath(path string) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(k, v []byte) error {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return nil
			}
			if run.OutputPath == path {
				runs = append(runs, run)
			}
			return nil
		})
	})

	return runs, err
}

// LastRun returns the most recent run. ok is false when the catalog is empty.
func (s *Store) LastRun() (run RunRecord, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket([]byte(runsBucket)).Cursor().Last()
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &run); err != nil {
			return fmt.Errorf("unmarshal run record: %w", err)
		}
		ok = true
		return nil
	})
	return run, ok, err
}
