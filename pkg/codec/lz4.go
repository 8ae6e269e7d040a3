// Package codec implements the content-block codec the .amem file format
// uses: LZ4 frames with a 4-byte decompressed-length prefix ("prepend
// size"), per spec §4.1.
//
// Grounded on the teacher's storage/badger_serialization.go wrapping idiom
// (small, focused (de)serialization helpers), backed by
// github.com/klauspost/compress/lz4 rather than badger's own internal
// value-log compression, which is not a portable on-disk frame format.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/lz4"
)

// CompressionError wraps an LZ4 encode/decode failure, satisfying spec
// §7's Compression(detail) taxonomy entry.
type CompressionError struct {
	Detail string
	Err    error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compression: %s: %v", e.Detail, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// Compress returns the "prepend size" LZ4 frame for content: a 4-byte
// little-endian decompressed length followed by the LZ4 block. Empty
// content compresses to a zero-length record, per spec §4.1.
func Compress(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return nil, &CompressionError{Detail: "lz4 write", Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &CompressionError{Detail: "lz4 close", Err: err}
	}

	out := make([]byte, 4+buf.Len())
	binary.LittleEndian.PutUint32(out[:4], uint32(len(content)))
	copy(out[4:], buf.Bytes())
	return out, nil
}

// Decompress reverses Compress. A zero-length frame decodes to an empty
// string.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	if len(frame) < 4 {
		return nil, &CompressionError{Detail: "frame truncated", Err: io.ErrUnexpectedEOF}
	}

	decompressedLen := binary.LittleEndian.Uint32(frame[:4])
	r := lz4.NewReader(bytes.NewReader(frame[4:]))
	out := make([]byte, decompressedLen)
	if decompressedLen > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, &CompressionError{Detail: "lz4 read", Err: err}
		}
	}
	return out, nil
}
