// Package storage persists predictions and their reconciled outcomes using
// BoltDB. The outcome history it accumulates feeds the confidence scorer's
// historical accuracy factor.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"matchpredict/internal/confidence"
	"matchpredict/internal/model"
)

const (
	predictionsBucket = "predictions" // keyed matchID_timestamp
	outcomesBucket    = "outcomes"    // keyed timestamp, recency-ordered
)

// StoredPrediction is the persisted form of one prediction, kept small so
// reconciliation only needs the predicted class.
type StoredPrediction struct {
	MatchID    string        `json:"matchId"`
	Outcome    model.Outcome `json:"outcome"`
	Probs      model.Probs   `json:"probabilities"`
	Confidence float64       `json:"confidence"`
	At         time.Time     `json:"at"`
}

// Store provides persistent storage for predictions and outcome history.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "matchpredict.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(outcomesBucket)); err != nil {
			return fmt.Errorf("create outcomes bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StorePrediction persists one prediction keyed matchID_timestamp.
func (s *Store) StorePrediction(p StoredPrediction) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		key := fmt.Sprintf("%s_%d", p.MatchID, p.At.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// LatestPrediction returns the most recent stored prediction for a match,
// or false if none exists.
func (s *Store) LatestPrediction(matchID string) (StoredPrediction, bool, error) {
	var latest StoredPrediction
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		c := b.Cursor()

		prefix := []byte(matchID + "_")
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var p StoredPrediction
			if err := json.Unmarshal(v, &p); err != nil {
				continue // skip malformed records
			}
			if !found || p.At.After(latest.At) {
				latest = p
				found = true
			}
		}
		return nil
	})

	return latest, found, err
}

// RecordOutcome joins the latest prediction for matchID with the realized
// result and appends an accuracy record to the outcome history.
func (s *Store) RecordOutcome(matchID string, actual model.Outcome) error {
	pred, found, err := s.LatestPrediction(matchID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no stored prediction for match %s", matchID)
	}

	record := confidence.OutcomeRecord{
		At:        time.Now().UTC(),
		Predicted: pred.Outcome,
		Actual:    actual,
		Correct:   pred.Outcome == actual,
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(outcomesBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}

		key := fmt.Sprintf("%020d", record.At.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// RecentOutcomes returns up to n reconciled outcomes, oldest first, so the
// scorer's recency weighting lands on the most recent entries. Implements
// confidence.History.
func (s *Store) RecentOutcomes(n int) ([]confidence.OutcomeRecord, error) {
	var records []confidence.OutcomeRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(outcomesBucket))
		c := b.Cursor()

		// Walk backwards from the newest key, then reverse.
		for k, v := c.Last(); k != nil && len(records) < n; k, v = c.Prev() {
			var r confidence.OutcomeRecord
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func hasPrefix(data, prefix []byte) bool {
	return bytes.HasPrefix(data, prefix)
}
