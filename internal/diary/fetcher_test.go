package diary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokorolog/feedback-service/internal/timewindow"
)

type stubStore struct {
	entries []Entry
	err     error
}

func (s *stubStore) Query(ctx context.Context, userID string, startUTC, endUTC time.Time) ([]Entry, error) {
	return s.entries, s.err
}

func TestFetchWindowReturnsEntries(t *testing.T) {
	window := timewindow.Resolve(time.Date(2025, 1, 16, 5, 0, 0, 0, timewindow.JST))
	entries := []Entry{
		{ID: 1, UserID: "user-1", Content: "散歩した", Mood: MoodPeaceful, CreatedAt: window.Start.Add(time.Hour)},
	}
	logger := zerolog.Nop()
	fetcher := NewFetcher(&stubStore{entries: entries}, &logger, false)

	result, err := fetcher.FetchWindow(context.Background(), "user-1", window)
	require.NoError(t, err)
	assert.Equal(t, entries, result.Entries)
	assert.Equal(t, 1, result.TotalFound)
	assert.False(t, result.Degraded)
}

func TestFetchWindowStoreFailureProductionIsEmptyDegraded(t *testing.T) {
	window := timewindow.Resolve(time.Now())
	logger := zerolog.Nop()
	fetcher := NewFetcher(&stubStore{err: errors.New("connection refused")}, &logger, false)

	result, err := fetcher.FetchWindow(context.Background(), "user-1", window)
	require.NoError(t, err, "store failure must not abort the batch")
	assert.Empty(t, result.Entries)
	assert.True(t, result.Degraded)
}

func TestFetchWindowStoreFailureDevFallbackSubstitutesSamples(t *testing.T) {
	window := timewindow.Resolve(time.Now())
	logger := zerolog.Nop()
	fetcher := NewFetcher(&stubStore{err: errors.New("connection refused")}, &logger, true)

	result, err := fetcher.FetchWindow(context.Background(), "user-1", window)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.True(t, result.Degraded)
	for _, entry := range result.Entries {
		assert.Equal(t, "user-1", entry.UserID)
		assert.True(t, window.Contains(entry.CreatedAt), "sample entries stay inside the window")
	}
}

func TestMoodLabel(t *testing.T) {
	assert.Equal(t, "嬉しい", MoodHappy.Label())
	assert.Equal(t, "不安", MoodAnxious.Label())
	// Unknown moods fall through to the raw value.
	assert.Equal(t, "meh", Mood("meh").Label())
}
