package bm25

import (
	"math"

	"github.com/agenticmemory/amem/pkg/event"
)

// Standard BM25 parameters, per spec §4.5.
const (
	K1 = 1.2
	B  = 0.75
)

// ScoreFast computes BM25 scores for every node that shares at least one
// query term, using the persisted TermIndex/DocLengths. This is the "fast
// path" of text_search.
func ScoreFast(queryTerms []string, ti *TermIndex, dl *DocLengths, totalDocs int) map[event.NodeID]float64 {
	scores := make(map[event.NodeID]float64)
	if totalDocs == 0 || dl.AvgLength() == 0 {
		return scores
	}

	termSeen := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		if _, dup := termSeen[term]; dup {
			continue
		}
		termSeen[term] = struct{}{}

		posts := ti.RawPostings(term)
		if len(posts) == 0 {
			continue
		}
		idf := idf(totalDocs, len(posts))
		for _, p := range posts {
			docLen, _ := dl.Length(p.NodeID)
			scores[p.NodeID] += termScore(idf, float64(p.Freq), float64(docLen), float64(dl.AvgLength()))
		}
	}
	return scores
}

// ScoreSlow computes the BM25 score of a single document's tokens against
// the query terms without any persisted index. termDocFreq carries the real
// per-term document frequency across the whole candidate set (see
// DocumentFrequency), so the slow path ranks identically to ScoreFast. This
// is the "slow path" of text_search, used when TermIndex/DocLengths are
// absent.
func ScoreSlow(queryTerms []string, tokens []string, totalDocs int, avgDocLen float64, termDocFreq map[string]int) float64 {
	if totalDocs == 0 || avgDocLen == 0 || len(tokens) == 0 {
		return 0
	}
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}

	var score float64
	termSeen := make(map[string]struct{}, len(queryTerms))
	for _, term := range queryTerms {
		if _, dup := termSeen[term]; dup {
			continue
		}
		termSeen[term] = struct{}{}
		tf := freq[term]
		df := termDocFreq[term]
		if tf == 0 || df == 0 {
			continue
		}
		score += termScore(idf(totalDocs, df), float64(tf), float64(len(tokens)), avgDocLen)
	}
	return score
}

// DocumentFrequency counts, for each of queryTerms, how many of the given
// tokenized documents contain that term at least once. One pass over
// docs×queryTerms, not docs×docs, so it stays cheap even though the slow
// path has no persisted postings list to consult.
func DocumentFrequency(queryTerms []string, docs [][]string) map[string]int {
	df := make(map[string]int, len(queryTerms))
	for _, doc := range docs {
		present := make(map[string]struct{}, len(queryTerms))
		for _, t := range doc {
			present[t] = struct{}{}
		}
		for _, term := range queryTerms {
			if _, ok := present[term]; ok {
				df[term]++
			}
		}
	}
	return df
}

func idf(totalDocs, docFreq int) float64 {
	// Standard BM25 idf with the +1 smoothing that keeps it non-negative
	// for small collections.
	return math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
}

func termScore(idf, tf, docLen, avgDocLen float64) float64 {
	numerator := tf * (K1 + 1)
	denominator := tf + K1*(1-B+B*(docLen/avgDocLen))
	return idf * (numerator / denominator)
}
