package collection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string
	Name  string
	Color string
}

func newTestSnapshot() *Snapshot[record] {
	return New(
		func(r record) string { return r.ID },
		func(a, b record) bool { return a == b },
	)
}

func TestDiffAgainstEmptySnapshot(t *testing.T) {
	s := newTestSnapshot()

	incoming := []record{
		{ID: "1", Name: "Dr. Chen"},
		{ID: "2", Name: "Dr. Patel"},
	}

	changed := s.Diff(incoming)
	assert.Len(t, changed, 2, "every record is new against an empty snapshot")
}

func TestDiffUnchangedCollectionIsEmpty(t *testing.T) {
	s := newTestSnapshot()

	records := []record{
		{ID: "1", Name: "Dr. Chen", Color: "#3B82F6"},
		{ID: "2", Name: "Dr. Patel", Color: "#10B981"},
	}
	s.Replace(records)

	changed := s.Diff(records)
	assert.Empty(t, changed, "resubmitting identical records must produce no diff")
}

func TestDiffDetectsModifiedAndNewRecords(t *testing.T) {
	s := newTestSnapshot()
	s.Replace([]record{
		{ID: "1", Name: "Dr. Chen", Color: "#3B82F6"},
		{ID: "2", Name: "Dr. Patel", Color: "#10B981"},
	})

	incoming := []record{
		{ID: "1", Name: "Dr. Chen", Color: "#3B82F6"},  // unchanged
		{ID: "2", Name: "Dr. Patel", Color: "#EF4444"}, // recolored
		{ID: "3", Name: "Dr. Okafor"},                  // new
	}

	changed := s.Diff(incoming)
	require.Len(t, changed, 2)
	assert.Equal(t, "2", changed[0].ID)
	assert.Equal(t, "3", changed[1].ID)
}

func TestDiffIgnoresRecordsRemovedFromIncoming(t *testing.T) {
	s := newTestSnapshot()
	s.Replace([]record{
		{ID: "1", Name: "Dr. Chen"},
		{ID: "2", Name: "Dr. Patel"},
	})

	// Diff only inspects incoming records; deletions are handled elsewhere.
	changed := s.Diff([]record{{ID: "1", Name: "Dr. Chen"}})
	assert.Empty(t, changed)
}

func TestReplaceSwapsWholeSnapshot(t *testing.T) {
	s := newTestSnapshot()
	s.Replace([]record{{ID: "1", Name: "Dr. Chen"}})
	require.Equal(t, 1, s.Len())

	s.Replace([]record{
		{ID: "2", Name: "Dr. Patel"},
		{ID: "3", Name: "Dr. Okafor"},
	})

	assert.Equal(t, 2, s.Len())
	_, found := s.Get("1")
	assert.False(t, found, "replaced records must be gone")
	got, found := s.Get("2")
	require.True(t, found)
	assert.Equal(t, "Dr. Patel", got.Name)
}

func TestPutAndRemove(t *testing.T) {
	s := newTestSnapshot()
	s.Replace([]record{{ID: "1", Name: "Dr. Chen"}})

	s.Put(record{ID: "2", Name: "Dr. Patel"})
	assert.Equal(t, 2, s.Len())

	s.Remove("1", "missing")
	assert.Equal(t, 1, s.Len())
	_, found := s.Get("1")
	assert.False(t, found)
}

func TestRecordsReturnsAllCached(t *testing.T) {
	s := newTestSnapshot()

	var want []record
	for i := 0; i < 5; i++ {
		want = append(want, record{ID: fmt.Sprintf("%d", i)})
	}
	s.Replace(want)

	got := s.Records()
	assert.Len(t, got, 5)
	assert.ElementsMatch(t, want, got)
}
