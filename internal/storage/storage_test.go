package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchpredict/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndFetchPrediction(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.StorePrediction(StoredPrediction{
		MatchID:    "m1",
		Outcome:    model.OutcomeHome,
		Probs:      model.Probs{0.5, 0.3, 0.2},
		Confidence: 0.6,
		At:         base,
	}))
	require.NoError(t, s.StorePrediction(StoredPrediction{
		MatchID:    "m1",
		Outcome:    model.OutcomeDraw,
		Probs:      model.Probs{0.3, 0.4, 0.3},
		Confidence: 0.5,
		At:         base.Add(time.Hour),
	}))

	latest, found, err := s.LatestPrediction("m1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, model.OutcomeDraw, latest.Outcome)

	_, found, err = s.LatestPrediction("unknown")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRecordOutcomeAndHistory(t *testing.T) {
	s := newTestStore(t)

	matches := []struct {
		id        string
		predicted model.Outcome
		actual    model.Outcome
	}{
		{"m1", model.OutcomeHome, model.OutcomeHome},
		{"m2", model.OutcomeDraw, model.OutcomeAway},
		{"m3", model.OutcomeAway, model.OutcomeAway},
	}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, m := range matches {
		require.NoError(t, s.StorePrediction(StoredPrediction{
			MatchID: m.id,
			Outcome: m.predicted,
			At:      base.Add(time.Duration(i) * time.Hour),
		}))
		require.NoError(t, s.RecordOutcome(m.id, m.actual))
	}

	records, err := s.RecentOutcomes(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Oldest first, so the scorer's recency weighting lands on the tail.
	require.Equal(t, model.OutcomeHome, records[0].Predicted)
	require.Equal(t, model.OutcomeAway, records[2].Predicted)
	require.True(t, records[0].Correct)
	require.False(t, records[1].Correct)
	require.True(t, records[2].Correct)

	limited, err := s.RecentOutcomes(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, model.OutcomeDraw, limited[0].Predicted)
}

func TestRecordOutcomeWithoutPrediction(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordOutcome("never-predicted", model.OutcomeHome)
	require.Error(t, err)
}
