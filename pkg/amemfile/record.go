package amemfile

import (
	"encoding/binary"
	"math"

	"github.com/agenticmemory/amem/pkg/event"
)

// nodeRecord is the on-disk, fixed-width shadow of a CognitiveEvent minus
// its content and feature vector, which live in their own blocks.
type nodeRecord struct {
	ID             uint64
	EventType      uint8
	CreatedAt      uint64
	SessionID      uint32
	Confidence     float32
	AccessCount    uint32
	LastAccessed   uint64
	DecayScore     float32
	ContentOffset  uint64
	ContentLength  uint32
	EdgeOffset     uint64
	EdgeCount      uint16
}

func encodeNodeRecord(buf []byte, r nodeRecord) {
	binary.LittleEndian.PutUint64(buf[0:8], r.ID)
	buf[8] = r.EventType
	// bytes 9-11 are padding, left zero.
	binary.LittleEndian.PutUint64(buf[12:20], r.CreatedAt)
	binary.LittleEndian.PutUint32(buf[20:24], r.SessionID)
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(r.Confidence))
	binary.LittleEndian.PutUint32(buf[28:32], r.AccessCount)
	binary.LittleEndian.PutUint64(buf[32:40], r.LastAccessed)
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(r.DecayScore))
	binary.LittleEndian.PutUint64(buf[44:52], r.ContentOffset)
	binary.LittleEndian.PutUint32(buf[52:56], r.ContentLength)
	binary.LittleEndian.PutUint64(buf[56:64], r.EdgeOffset)
	binary.LittleEndian.PutUint16(buf[64:66], r.EdgeCount)
	// bytes 66-71 are padding, left zero.
}

func decodeNodeRecord(buf []byte) nodeRecord {
	return nodeRecord{
		ID:            binary.LittleEndian.Uint64(buf[0:8]),
		EventType:     buf[8],
		CreatedAt:     binary.LittleEndian.Uint64(buf[12:20]),
		SessionID:     binary.LittleEndian.Uint32(buf[20:24]),
		Confidence:    math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28])),
		AccessCount:   binary.LittleEndian.Uint32(buf[28:32]),
		LastAccessed:  binary.LittleEndian.Uint64(buf[32:40]),
		DecayScore:    math.Float32frombits(binary.LittleEndian.Uint32(buf[40:44])),
		ContentOffset: binary.LittleEndian.Uint64(buf[44:52]),
		ContentLength: binary.LittleEndian.Uint32(buf[52:56]),
		EdgeOffset:    binary.LittleEndian.Uint64(buf[56:64]),
		EdgeCount:     binary.LittleEndian.Uint16(buf[64:66]),
	}
}

// edgeRecord is the on-disk, fixed-width shadow of an event.Edge.
type edgeRecord struct {
	SourceID  uint64
	TargetID  uint64
	EdgeType  uint8
	Weight    float32
	CreatedAt uint64
}

func encodeEdgeRecord(buf []byte, r edgeRecord) {
	binary.LittleEndian.PutUint64(buf[0:8], r.SourceID)
	binary.LittleEndian.PutUint64(buf[8:16], r.TargetID)
	buf[16] = r.EdgeType
	// bytes 17-19 are padding, left zero.
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(r.Weight))
	binary.LittleEndian.PutUint64(buf[24:32], r.CreatedAt)
}

func decodeEdgeRecord(buf []byte) edgeRecord {
	return edgeRecord{
		SourceID:  binary.LittleEndian.Uint64(buf[0:8]),
		TargetID:  binary.LittleEndian.Uint64(buf[8:16]),
		EdgeType:  buf[16],
		Weight:    math.Float32frombits(binary.LittleEndian.Uint32(buf[20:24])),
		CreatedAt: binary.LittleEndian.Uint64(buf[24:32]),
	}
}

func toEdge(r edgeRecord) event.Edge {
	return event.Edge{
		SourceID:  r.SourceID,
		TargetID:  r.TargetID,
		EdgeType:  event.EdgeType(r.EdgeType),
		Weight:    r.Weight,
		CreatedAt: r.CreatedAt,
	}
}
