package ffi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndIngestAndClose(t *testing.T) {
	handle, code := New(4)
	require.Equal(t, OK, code)
	defer Close(handle)

	id, code := Ingest(handle, 0, "hello", 1, 0.9, make([]float32, 4), 1000)
	require.Equal(t, OK, code)
	require.Equal(t, uint64(0), id)
}

func TestLookupUnknownHandleReturnsNotFound(t *testing.T) {
	_, code := Ingest(99999, 0, "x", 0, 0, nil, 0)
	require.Equal(t, NotFound, code)
}

func TestIngestRejectsInvalidEventType(t *testing.T) {
	handle, _ := New(4)
	defer Close(handle)
	_, code := Ingest(handle, 255, "x", 0, 0, nil, 0)
	require.Equal(t, INVALID, code)
}

func TestSimilarityReportsOverflowWhenBufferTooSmall(t *testing.T) {
	handle, _ := New(4)
	defer Close(handle)

	for i := 0; i < 3; i++ {
		_, code := Ingest(handle, 0, "x", 0, 0.5, []float32{1, 0, 0, 0}, 0)
		require.Equal(t, OK, code)
	}

	out := make([]ScoredResult, 1)
	n, code := Similarity(handle, []float32{1, 0, 0, 0}, 3, out)
	require.Equal(t, Overflow, code)
	require.Equal(t, 1, n)
}

func TestTextSearchFindsIngestedContent(t *testing.T) {
	handle, _ := New(4)
	defer Close(handle)
	_, code := Ingest(handle, 0, "the quick brown fox", 0, 0.5, nil, 0)
	require.Equal(t, OK, code)

	out := make([]ScoredResult, 4)
	n, code := TextSearch(handle, "fox", 4, out)
	require.Equal(t, OK, code)
	require.Equal(t, 1, n)
}

func TestCloseIsIdempotent(t *testing.T) {
	handle, _ := New(4)
	require.Equal(t, OK, Close(handle))
	require.Equal(t, OK, Close(handle))
}
