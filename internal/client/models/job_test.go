package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/blob"
)

func newJob() *Job {
	return NewJob("tmp-1", blob.FromBytes("a.mp4", "video/mp4", make([]byte, 100)))
}

func TestJob_ForwardTransitions(t *testing.T) {
	j := newJob()
	assert.Equal(t, StatusQueued, j.Status())
	assert.Same(t, j.Source, j.Candidate)
	assert.False(t, j.Compressed())

	for _, s := range []Status{StatusGeneratingThumbnail, StatusAwaitingAuthorization, StatusUploading, StatusFinalizing} {
		require.NoError(t, j.Advance(s))
		assert.Equal(t, s, j.Status())
	}

	require.ErrorIs(t, j.Advance(StatusCompressing), ErrStatusRegression)
	require.ErrorIs(t, j.Advance(StatusCompleted), ErrInvalidStatus)
	require.ErrorIs(t, j.Advance(Status("bogus")), ErrInvalidStatus)

	require.NoError(t, j.Complete(RecordRef{ID: "r1"}))
	assert.Equal(t, StatusCompleted, j.Status())
	assert.Equal(t, 100, j.Progress())
}

func TestJob_TerminalIsFinal(t *testing.T) {
	j := newJob()
	require.NoError(t, j.Fail("boom"))

	assert.ErrorIs(t, j.Advance(StatusUploading), ErrJobFinished)
	assert.ErrorIs(t, j.Fail("again"), ErrJobFinished)
	assert.ErrorIs(t, j.Complete(RecordRef{ID: "x"}), ErrJobFinished)

	reason, ok := j.Snapshot(0).Failure()
	assert.True(t, ok)
	assert.Equal(t, "boom", reason)

	c := newJob()
	require.NoError(t, c.Complete(RecordRef{ID: "r"}))
	assert.ErrorIs(t, c.Fail("late"), ErrJobFinished)
}

func TestJob_FailFromAnyStage(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusGeneratingThumbnail, StatusCompressing, StatusAwaitingAuthorization, StatusUploading, StatusFinalizing} {
		j := newJob()
		if s != StatusQueued {
			require.NoError(t, j.Advance(s))
		}
		require.NoError(t, j.Fail(""), s)
		reason, _ := j.Snapshot(0).Failure()
		assert.Equal(t, "unknown error", reason)
	}
}

func TestJob_SetProgress(t *testing.T) {
	j := newJob()
	assert.False(t, j.SetProgress(10), "ignored before uploading")

	require.NoError(t, j.Advance(StatusUploading))
	assert.True(t, j.SetProgress(10))
	assert.False(t, j.SetProgress(5), "never decreases")
	assert.False(t, j.SetProgress(10), "deduplicated")
	assert.True(t, j.SetProgress(250))
	assert.Equal(t, 100, j.Progress())
}

func TestSnapshot_Accessors(t *testing.T) {
	j := newJob()
	j.StorageKey = "uploads/2026/10/16/k.mp4"
	j.Candidate = blob.FromBytes("a_compressed.mp4", "video/mp4", make([]byte, 40))

	s := j.Snapshot(25)
	_, ok := s.Failure()
	assert.False(t, ok)
	_, ok = s.Record()
	assert.False(t, ok)
	_, ok = s.Summary()
	assert.False(t, ok)

	key, ok := s.StorageKey()
	assert.True(t, ok)
	assert.Equal(t, "uploads/2026/10/16/k.mp4", key)

	original, sent, compressed := s.Sizes()
	assert.EqualValues(t, 100, original)
	assert.EqualValues(t, 40, sent)
	assert.True(t, compressed)
	assert.Equal(t, 25, s.Aggregate)

	require.NoError(t, j.Advance(StatusFinalizing))
	require.NoError(t, j.Complete(RecordRef{ID: "rec-1", StorageKey: key}))
	ref, ok := j.Snapshot(100).Record()
	require.True(t, ok)
	assert.Equal(t, "rec-1", ref.ID)

	// earlier snapshots are unaffected
	assert.Equal(t, StatusQueued, s.Status)
}

func TestSummarySnapshot(t *testing.T) {
	s := SummarySnapshot(Summary{Succeeded: 1, Failed: 1, Total: 2}, 100)

	sum, ok := s.Summary()
	require.True(t, ok)
	assert.Equal(t, "1 succeeded / 2", sum.String())
	_, ok = s.StorageKey()
	assert.False(t, ok)
	_, ok = s.Failure()
	assert.False(t, ok)
}

func TestHistoryEntryFromSnapshot(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	j := newJob()
	_, ok := HistoryEntryFromSnapshot(j.Snapshot(0), at)
	assert.False(t, ok, "non-terminal")

	_, ok = HistoryEntryFromSnapshot(SummarySnapshot(Summary{}, 0), at)
	assert.False(t, ok, "summary")

	j.StorageKey = "k"
	require.NoError(t, j.Complete(RecordRef{ID: "rec"}))
	e, ok := HistoryEntryFromSnapshot(j.Snapshot(100), at)
	require.True(t, ok)
	assert.Equal(t, HistoryEntry{
		JobID: "tmp-1", FileName: "a.mp4", Status: StatusCompleted, StorageKey: "k",
		RecordID: "rec", SizeBytes: 100, OriginalSizeBytes: 100, FinishedAt: at,
	}, e)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "done", StatusCompleted.Label())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusUploading.Terminal())
	assert.Equal(t, "status(x)", Status("x").Label())
}
