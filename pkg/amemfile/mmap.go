package amemfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/agenticmemory/amem/pkg/codec"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
)

// MmapReader gives O(1) random access to a single node's record, content, or
// feature vector without loading the whole file or materializing a
// MemoryGraph, for read-mostly deployments that only ever look up a handful
// of nodes per query.
//
// Grounded on the raw syscall.Mmap usage in
// other_examples/a64145ea_calvinalkan-agent-task__pkg-slotcache-slotcache.go.go,
// ported to golang.org/x/sys/unix for the read-only PROT_READ|MAP_SHARED
// mapping this package needs (no write path, no generation counter — this
// file is immutable once written).
type MmapReader struct {
	f      *os.File
	data   []byte
	header Header
}

// OpenMmap opens path, mmaps it read-only, and validates its header. The
// caller must call Close when done to unmap and release the file handle.
func OpenMmap(path string) (*MmapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		f.Close()
		return nil, &TruncatedError{Region: "header"}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("amemfile: mmap: %w", err)
	}

	header, err := DecodeHeader(data)
	if err != nil {
		_ = unix.Munmap(data)
		f.Close()
		return nil, err
	}

	return &MmapReader{f: f, data: data, header: header}, nil
}

// Close unmaps the file and closes the underlying handle.
func (r *MmapReader) Close() error {
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Header returns the parsed file header.
func (r *MmapReader) Header() Header { return r.header }

func (r *MmapReader) nodeRecordAt(i uint64) (nodeRecord, error) {
	if i >= r.header.NodeCount {
		return nodeRecord{}, &event.NotFoundError{Kind: "node", ID: i}
	}
	off := r.header.NodeTableOffset + i*NodeRecordSize
	if uint64(len(r.data)) < off+NodeRecordSize {
		return nodeRecord{}, &TruncatedError{Region: "node table"}
	}
	return decodeNodeRecord(r.data[off : off+NodeRecordSize]), nil
}

// ReadNode returns node index i's fixed fields (excluding content and
// feature vector, use ReadContent/ReadFeatureVec for those) without
// touching any other node's bytes. Nodes are addressed by their position in
// the node table, which equals their id for a file written without gaps.
func (r *MmapReader) ReadNode(i uint64) (event.CognitiveEvent, error) {
	rec, err := r.nodeRecordAt(i)
	if err != nil {
		return event.CognitiveEvent{}, err
	}
	return event.CognitiveEvent{
		ID:           rec.ID,
		EventType:    event.EventType(rec.EventType),
		CreatedAt:    rec.CreatedAt,
		SessionID:    rec.SessionID,
		Confidence:   rec.Confidence,
		AccessCount:  rec.AccessCount,
		LastAccessed: rec.LastAccessed,
		DecayScore:   rec.DecayScore,
	}, nil
}

// ReadContent decompresses and returns node index i's content.
func (r *MmapReader) ReadContent(i uint64) (string, error) {
	rec, err := r.nodeRecordAt(i)
	if err != nil {
		return "", err
	}
	if rec.ContentLength == 0 {
		return "", nil
	}
	if uint64(len(r.data)) < rec.ContentOffset+uint64(rec.ContentLength) {
		return "", &TruncatedError{Region: "content block"}
	}
	frame := r.data[rec.ContentOffset : rec.ContentOffset+uint64(rec.ContentLength)]
	out, err := codec.Decompress(frame)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ReadFeatureVec returns node index i's feature vector.
func (r *MmapReader) ReadFeatureVec(i uint64) ([]float32, error) {
	if i >= r.header.NodeCount {
		return nil, &event.NotFoundError{Kind: "node", ID: i}
	}
	dim := uint64(r.header.Dimension)
	off := r.header.FeatureVecOffset + i*dim*4
	if uint64(len(r.data)) < off+dim*4 {
		return nil, &TruncatedError{Region: "feature vector block"}
	}
	vec := make([]float32, dim)
	for d := uint64(0); d < dim; d++ {
		vec[d] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[off+d*4 : off+d*4+4]))
	}
	return vec, nil
}

// ReadEdges returns the outgoing edges of node index i.
func (r *MmapReader) ReadEdges(i uint64) ([]event.Edge, error) {
	rec, err := r.nodeRecordAt(i)
	if err != nil {
		return nil, err
	}
	if rec.EdgeCount == 0 {
		return nil, nil
	}
	start := rec.EdgeOffset
	end := start + uint64(rec.EdgeCount)
	if end > r.header.EdgeCount {
		return nil, &CorruptError{Offset: int64(r.header.EdgeTableOffset), Reason: "edge range exceeds edge table"}
	}
	out := make([]event.Edge, rec.EdgeCount)
	for j := uint64(0); j < uint64(rec.EdgeCount); j++ {
		off := r.header.EdgeTableOffset + (start+j)*EdgeRecordSize
		if uint64(len(r.data)) < off+EdgeRecordSize {
			return nil, &TruncatedError{Region: "edge table"}
		}
		out[j] = toEdge(decodeEdgeRecord(r.data[off : off+EdgeRecordSize]))
	}
	return out, nil
}

// BatchSimilarity computes cosine similarity between query and every node's
// feature vector, without ever materializing the full vector block into a
// single allocation.
func (r *MmapReader) BatchSimilarity(query []float32) ([]float64, error) {
	out := make([]float64, r.header.NodeCount)
	for i := uint64(0); i < r.header.NodeCount; i++ {
		vec, err := r.ReadFeatureVec(i)
		if err != nil {
			return nil, err
		}
		out[i] = vector.CosineSimilarity(query, vec)
	}
	return out, nil
}
