// Package amemfile implements the .amem binary container: the header,
// node/edge tables, compressed content block, feature-vector block, and
// optional index block, plus a buffered Writer, a full-load Reader, and an
// mmap-backed MmapReader for random access without materializing a graph.
//
// Everything is little-endian: a 64-byte header, 72-byte node records and
// 32-byte edge records. A node record's content_offset is an absolute file
// offset, and its edge_offset is an index into the edge table counted in
// records, not bytes. Each index-block entry is a 1-byte tag followed by a
// u32 payload length; the count fields inside each payload have the widths
// written by the encoders in indexblock.go (u16 or u32, not u64).
// Grounded on the fixed-offset record style of
// other_examples/a64145ea_calvinalkan-agent-task__pkg-slotcache-slotcache.go.go
// (header constants, encoding/binary.LittleEndian at fixed offsets) and the
// checksum/flush discipline of the teacher's pkg/storage/wal.go.
package amemfile

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies an .amem file.
var Magic = [4]byte{'A', 'M', 'E', 'M'}

// CurrentVersion is the format version this package writes and the highest
// version it will open.
const CurrentVersion = 1

// Feature flags advertised in the header, per spec §4.1.
const (
	FlagHasTermIndex  uint32 = 0x01
	FlagHasDocLengths uint32 = 0x02
)

// Fixed record sizes, per spec §4.1.
const (
	HeaderSize     = 64
	NodeRecordSize = 72
	EdgeRecordSize = 32
)

// Header is the 64-byte fixed header at the start of every .amem file.
type Header struct {
	Version           uint32
	Dimension         uint32
	Flags             uint32
	NodeCount         uint64
	EdgeCount         uint64
	NodeTableOffset   uint64
	EdgeTableOffset   uint64
	ContentBlockOffset uint64
	FeatureVecOffset  uint64
}

// HasTermIndex reports whether FlagHasTermIndex is set.
func (h Header) HasTermIndex() bool { return h.Flags&FlagHasTermIndex != 0 }

// HasDocLengths reports whether FlagHasDocLengths is set.
func (h Header) HasDocLengths() bool { return h.Flags&FlagHasDocLengths != 0 }

// IndexBlockOffset returns the offset immediately following the
// feature-vector block, where the optional index block begins.
func (h Header) IndexBlockOffset() uint64 {
	return h.FeatureVecOffset + h.NodeCount*uint64(h.Dimension)*4
}

// Encode writes the header into a 64-byte buffer.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Dimension)
	binary.LittleEndian.PutUint32(buf[12:16], h.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], h.NodeCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.EdgeCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.NodeTableOffset)
	binary.LittleEndian.PutUint64(buf[40:48], h.EdgeTableOffset)
	binary.LittleEndian.PutUint64(buf[48:56], h.ContentBlockOffset)
	binary.LittleEndian.PutUint64(buf[56:64], h.FeatureVecOffset)
	return buf
}

// InvalidMagicError, UnsupportedVersionError, TruncatedError, and
// CorruptError are the file-integrity errors named in spec §7.
type InvalidMagicError struct{ Got [4]byte }

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("amemfile: invalid magic %q", e.Got[:])
}

type UnsupportedVersionError struct{ Version uint32 }

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("amemfile: unsupported version %d (max %d)", e.Version, CurrentVersion)
}

type TruncatedError struct{ Region string }

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("amemfile: truncated: %s region extends past end of file", e.Region)
}

type CorruptError struct {
	Offset int64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("amemfile: corrupt at offset %d: %s", e.Offset, e.Reason)
}

// DecodeHeader parses the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &TruncatedError{Region: "header"}
	}

	var got [4]byte
	copy(got[:], buf[0:4])
	if got != Magic {
		return Header{}, &InvalidMagicError{Got: got}
	}

	h := Header{
		Version:            binary.LittleEndian.Uint32(buf[4:8]),
		Dimension:          binary.LittleEndian.Uint32(buf[8:12]),
		Flags:              binary.LittleEndian.Uint32(buf[12:16]),
		NodeCount:          binary.LittleEndian.Uint64(buf[16:24]),
		EdgeCount:          binary.LittleEndian.Uint64(buf[24:32]),
		NodeTableOffset:    binary.LittleEndian.Uint64(buf[32:40]),
		EdgeTableOffset:    binary.LittleEndian.Uint64(buf[40:48]),
		ContentBlockOffset: binary.LittleEndian.Uint64(buf[48:56]),
		FeatureVecOffset:   binary.LittleEndian.Uint64(buf[56:64]),
	}

	if h.Version > CurrentVersion {
		return Header{}, &UnsupportedVersionError{Version: h.Version}
	}

	return h, nil
}
