// Package ffi is the Go-side implementation backing the C ABI exported by
// cmd/libamem. It owns no cgo: cmd/libamem's //export functions marshal C
// types into calls here and back, keeping this package importable (and
// testable) without a C toolchain.
//
// Grounded on the teacher's pkg/localllm/llama.go for the handle-lifecycle
// shape (explicit load/close pair, caller-owned handle, defensive nil
// checks before every native call) — adapted here from "wrap a C pointer"
// to "wrap a Go value behind an opaque integer handle", since this package
// exports Go to C rather than importing C into Go.
package ffi

import (
	"sync"
	"sync/atomic"

	"github.com/agenticmemory/amem/pkg/amemfile"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/agenticmemory/amem/pkg/queryengine"
	"github.com/agenticmemory/amem/pkg/writeengine"
)

// Code is the stable C ABI error/status code.
type Code int32

const (
	OK       Code = 0
	IO       Code = -1
	INVALID  Code = -2
	NotFound Code = -3
	Overflow Code = -4
	NullPtr  Code = -5
)

// Session bundles a graph with its write and query engines behind one
// handle, since every FFI caller needs all three.
type Session struct {
	g  *graph.MemoryGraph
	we *writeengine.Engine
	qe *queryengine.Engine
}

var (
	sessions  sync.Map // int64 -> *Session
	nextID    atomic.Int64
)

func register(s *Session) int64 {
	id := nextID.Add(1)
	sessions.Store(id, s)
	return id
}

func lookup(handle int64) (*Session, Code) {
	v, ok := sessions.Load(handle)
	if !ok {
		return nil, NotFound
	}
	return v.(*Session), OK
}

// New creates a fresh in-memory graph of the given dimension and returns
// its handle.
func New(dimension int) (int64, Code) {
	if dimension <= 0 {
		return 0, INVALID
	}
	g := graph.New(dimension)
	return register(&Session{g: g, we: writeengine.New(g), qe: queryengine.New(g)}), OK
}

// Open loads an .amem file from path and returns its handle.
func Open(path string) (int64, Code) {
	if path == "" {
		return 0, NullPtr
	}
	g, err := amemfile.ReadFile(path)
	if err != nil {
		return 0, IO
	}
	return register(&Session{g: g, we: writeengine.New(g), qe: queryengine.New(g)}), OK
}

// Save writes the handle's graph to path.
func Save(handle int64, path string) Code {
	s, code := lookup(handle)
	if code != OK {
		return code
	}
	if path == "" {
		return NullPtr
	}
	if err := amemfile.WriteFile(path, s.g); err != nil {
		return IO
	}
	return OK
}

// Close releases a handle. Closing an unknown handle is a no-op success,
// matching the teacher's idempotent-Close convention.
func Close(handle int64) Code {
	sessions.Delete(handle)
	return OK
}

// Ingest adds one node with no edges and returns its assigned id.
func Ingest(handle int64, eventType uint8, content string, sessionID uint32, confidence float32, featureVec []float32, nowMicros uint64) (uint64, Code) {
	s, code := lookup(handle)
	if code != OK {
		return 0, code
	}
	if !event.EventType(eventType).Valid() {
		return 0, INVALID
	}
	id, err := s.g.AddNode(event.CognitiveEvent{
		EventType:    event.EventType(eventType),
		Content:      content,
		SessionID:    sessionID,
		Confidence:   confidence,
		FeatureVec:   featureVec,
		CreatedAt:    nowMicros,
		LastAccessed: nowMicros,
	})
	if err != nil {
		return 0, INVALID
	}
	return uint64(id), OK
}

// Touch records an access against id.
func Touch(handle int64, id uint64, nowMicros uint64) Code {
	s, code := lookup(handle)
	if code != OK {
		return code
	}
	if err := s.we.Touch(event.NodeID(id), nowMicros); err != nil {
		return NotFound
	}
	return OK
}

// ScoredResult mirrors queryengine.Scored without importing it into the C
// boundary layer's vocabulary.
type ScoredResult struct {
	ID    uint64
	Score float64
}

// Similarity runs a cosine-similarity search and writes up to len(out)
// results into out, returning the number written. If more than len(out)
// matches exist, Overflow is returned alongside the truncated-to-capacity
// result count so the caller can retry with a larger buffer.
func Similarity(handle int64, query []float32, topK int, out []ScoredResult) (int, Code) {
	s, code := lookup(handle)
	if code != OK {
		return 0, code
	}
	if query == nil {
		return 0, NullPtr
	}
	results := s.qe.Similarity(queryengine.SimilarityParams{Query: query, TopK: topK})
	return fillScored(results, out)
}

// TextSearch runs BM25 text search and writes results the same way
// Similarity does.
func TextSearch(handle int64, queryText string, maxResults int, out []ScoredResult) (int, Code) {
	s, code := lookup(handle)
	if code != OK {
		return 0, code
	}
	results := s.qe.TextSearch(queryengine.TextSearchParams{Query: queryText, MaxResults: maxResults})
	return fillScored(results, out)
}

func fillScored(results []queryengine.Scored, out []ScoredResult) (int, Code) {
	n := len(results)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = ScoredResult{ID: uint64(results[i].ID), Score: results[i].Score}
	}
	if len(results) > len(out) {
		return n, Overflow
	}
	return n, OK
}
