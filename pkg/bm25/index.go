package bm25

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// Posting is one (node, term frequency) entry in a term's postings list.
type Posting struct {
	NodeID event.NodeID
	Freq   uint32
}

// TermIndex is the optional inverted index backing text_search's fast path:
// term -> postings list. Rebuildable from the node set at any time; absent
// TermIndex falls back to the slow, retokenize-every-node path in
// pkg/queryengine.
type TermIndex struct {
	postings map[string][]Posting
	vocab    []string // sorted, for deterministic index-block serialization
}

// BuildTermIndex tokenizes every (id, content) pair and returns a populated
// TermIndex plus the DocLengths it implies.
func BuildTermIndex(docs []struct {
	ID      event.NodeID
	Content string
}) (*TermIndex, *DocLengths) {
	ti := &TermIndex{postings: make(map[string][]Posting)}
	dl := &DocLengths{lengths: make(map[event.NodeID]uint32)}

	var totalLen uint64
	for _, d := range docs {
		tokens := Tokenize(d.Content)
		dl.lengths[d.ID] = uint32(len(tokens))
		totalLen += uint64(len(tokens))

		freq := make(map[string]uint32)
		for _, t := range tokens {
			freq[t]++
		}
		for term, f := range freq {
			ti.postings[term] = append(ti.postings[term], Posting{NodeID: d.ID, Freq: f})
		}
	}

	for term, posts := range ti.postings {
		sort.Slice(posts, func(i, j int) bool { return posts[i].NodeID < posts[j].NodeID })
		ti.postings[term] = posts
		ti.vocab = append(ti.vocab, term)
	}
	sort.Strings(ti.vocab)

	if len(docs) > 0 {
		dl.avg = float32(float64(totalLen) / float64(len(docs)))
	}
	dl.count = len(docs)

	return ti, dl
}

// ImportTermIndex rebuilds a TermIndex from a postings map already decoded
// from an index block's 0x05 tag, used by the Reader.
func ImportTermIndex(postings map[string][]Posting) *TermIndex {
	ti := &TermIndex{postings: postings, vocab: make([]string, 0, len(postings))}
	for term := range postings {
		ti.vocab = append(ti.vocab, term)
	}
	sort.Strings(ti.vocab)
	return ti
}

// Postings returns the postings list for term, satisfying
// graph.TermIndexer.
func (ti *TermIndex) Postings(term string) []struct {
	NodeID event.NodeID
	Freq   uint32
} {
	posts := ti.postings[term]
	out := make([]struct {
		NodeID event.NodeID
		Freq   uint32
	}, len(posts))
	for i, p := range posts {
		out[i] = struct {
			NodeID event.NodeID
			Freq   uint32
		}{p.NodeID, p.Freq}
	}
	return out
}

// RawPostings returns the postings list for term without the anonymous
// struct conversion, for callers inside this module.
func (ti *TermIndex) RawPostings(term string) []Posting { return ti.postings[term] }

// VocabSize returns the number of distinct terms indexed.
func (ti *TermIndex) VocabSize() int { return len(ti.vocab) }

// Vocab returns the sorted term list, used by the Writer to serialize the
// 0x05 TermIndex index-block tag deterministically.
func (ti *TermIndex) Vocab() []string { return ti.vocab }

// DocLengths is the optional doc-length table BM25's length-normalization
// term needs: each node's token count plus the collection average.
type DocLengths struct {
	lengths map[event.NodeID]uint32
	avg     float32
	count   int
}

// NewDocLengths builds a DocLengths from raw (id, length) pairs and a
// precomputed average, used by the Reader when rehydrating index-block tag
// 0x06.
func NewDocLengths(entries map[event.NodeID]uint32, avg float32) *DocLengths {
	return &DocLengths{lengths: entries, avg: avg, count: len(entries)}
}

// Length returns the token count of node id and whether it was tracked.
func (d *DocLengths) Length(id event.NodeID) (uint32, bool) {
	l, ok := d.lengths[id]
	return l, ok
}

// AvgLength returns the collection's average document length.
func (d *DocLengths) AvgLength() float32 { return d.avg }

// Count returns the number of documents tracked.
func (d *DocLengths) Count() int { return d.count }

// Entries returns every (id, length) pair, used by the Writer to serialize
// tag 0x06.
func (d *DocLengths) Entries() map[event.NodeID]uint32 { return d.lengths }
