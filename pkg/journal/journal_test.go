package journal

import (
	"testing"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	j := openTestJournal(t)

	seq1, err := j.AppendTouch(TouchPayload{ID: 0, NowMicros: 100})
	require.NoError(t, err)
	seq2, err := j.AppendTouch(TouchPayload{ID: 1, NowMicros: 200})
	require.NoError(t, err)
	require.Equal(t, seq1+1, seq2)
}

func TestReplayAppliesEntriesInOrder(t *testing.T) {
	j := openTestJournal(t)

	g := graph.New(4)
	eng := New(g, j)

	_, err := eng.Ingest([]event.CognitiveEvent{
		{EventType: event.Fact, Content: "a"},
		{EventType: event.Fact, Content: "b"},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, eng.Touch(0, 5000))

	fresh := graph.New(4)
	require.NoError(t, ReplayInto(j, fresh))

	n, err := fresh.GetNode(0)
	require.NoError(t, err)
	require.Equal(t, "a", n.Content)
	require.Equal(t, uint32(1), n.AccessCount)
	require.Equal(t, 2, fresh.NodeCount())
}

func TestReplayDetectsCorruption(t *testing.T) {
	j := openTestJournal(t)
	seq, err := j.AppendTouch(TouchPayload{ID: 0, NowMicros: 1})
	require.NoError(t, err)

	require.NoError(t, j.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(seq))
		if err != nil {
			return err
		}
		record, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record[8] ^= 0xFF // flip a byte inside the JSON payload, not the checksum
		return txn.Set(seqKey(seq), record)
	}))

	err = j.Replay(func(Entry) error { return nil })
	require.Error(t, err)
	var corrupt *CorruptEntryError
	require.ErrorAs(t, err, &corrupt)
	require.Equal(t, seq, corrupt.Sequence)
}

func TestTruncateRemovesAllEntries(t *testing.T) {
	j := openTestJournal(t)
	_, err := j.AppendTouch(TouchPayload{ID: 0, NowMicros: 1})
	require.NoError(t, err)

	require.NoError(t, j.Truncate())

	count := 0
	require.NoError(t, j.Replay(func(Entry) error {
		count++
		return nil
	}))
	require.Equal(t, 0, count)
}
