package bm25

import (
	"testing"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("The Go gopher is a mascot, and it is cute!")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "is")
	assert.NotContains(t, tokens, "a")
	assert.Contains(t, tokens, "go")
	assert.Contains(t, tokens, "gopher")
	assert.Contains(t, tokens, "mascot")
	assert.Contains(t, tokens, "cute")
}

func TestBuildTermIndexAndFastScore(t *testing.T) {
	docs := []struct {
		ID      event.NodeID
		Content string
	}{
		{ID: 0, Content: "rust is a systems programming language"},
		{ID: 1, Content: "go is a systems programming language too"},
		{ID: 2, Content: "cooking pasta with tomato sauce"},
	}

	ti, dl := BuildTermIndex(docs)
	require.Equal(t, 3, dl.Count())

	scores := ScoreFast(Tokenize("systems programming"), ti, dl, 3)
	require.Contains(t, scores, event.NodeID(0))
	require.Contains(t, scores, event.NodeID(1))
	require.NotContains(t, scores, event.NodeID(2))
	assert.Greater(t, scores[0], 0.0)
}

func TestFastSlowEquivalenceIDSet(t *testing.T) {
	docs := []struct {
		ID      event.NodeID
		Content string
	}{
		{ID: 0, Content: "the quick brown fox"},
		{ID: 1, Content: "a slow green turtle"},
		{ID: 2, Content: "quick quick quick fox fox"},
	}
	ti, dl := BuildTermIndex(docs)

	query := Tokenize("quick fox")
	fast := ScoreFast(query, ti, dl, len(docs))

	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = Tokenize(d.Content)
	}
	df := DocumentFrequency(query, tokenized)

	slowIDs := make(map[event.NodeID]bool)
	for i, d := range docs {
		s := ScoreSlow(query, tokenized[i], len(docs), float64(dl.AvgLength()), df)
		if s > 0 {
			slowIDs[d.ID] = true
		}
	}

	fastIDs := make(map[event.NodeID]bool)
	for id := range fast {
		fastIDs[id] = true
	}
	assert.Equal(t, fastIDs, slowIDs)
}

// TestFastSlowRankingMatches checks relative ordering, not just id-set
// membership: five equal-length docs, a rare term (df=1) and a common term
// (df=4), one hit each. A slow path that folds idf to a constant would rank
// every doc identically; the real per-term document frequency must rank the
// rare-term doc strictly above the common-term docs, same as the fast path.
func TestFastSlowRankingMatches(t *testing.T) {
	docs := []struct {
		ID      event.NodeID
		Content string
	}{
		{ID: 0, Content: "apple filler1 extra1"},
		{ID: 1, Content: "apple filler2 extra2"},
		{ID: 2, Content: "apple filler3 extra3"},
		{ID: 3, Content: "apple filler4 extra4"},
		{ID: 4, Content: "zephyr filler5 extra5"},
	}
	ti, dl := BuildTermIndex(docs)
	query := Tokenize("apple zephyr")

	fast := ScoreFast(query, ti, dl, len(docs))
	require.Greater(t, fast[4], fast[0], "rare term zephyr should outrank common term apple on the fast path")
	for id := event.NodeID(0); id <= 3; id++ {
		assert.InDelta(t, fast[0], fast[id], 1e-9, "all apple-docs should score equally on the fast path")
	}

	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = Tokenize(d.Content)
	}
	df := DocumentFrequency(query, tokenized)

	slow := make(map[event.NodeID]float64, len(docs))
	for i, d := range docs {
		slow[d.ID] = ScoreSlow(query, tokenized[i], len(docs), float64(dl.AvgLength()), df)
	}
	require.Greater(t, slow[4], slow[0], "rare term zephyr should outrank common term apple on the slow path")
	for id := event.NodeID(0); id <= 3; id++ {
		assert.InDelta(t, slow[0], slow[id], 1e-9, "all apple-docs should score equally on the slow path")
	}
}
