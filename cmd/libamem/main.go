//go:build cgo

// Command libamem builds a C-callable shared library exposing a stable ABI
// subset of AgenticMemory: open/new/save/close a graph, ingest a node,
// touch it, and run similarity/text search. Every exported function
// recovers from panics and converts them into the documented error codes
// rather than letting a Go panic unwind across the cgo boundary, which
// would abort the host process.
//
// Grounded on the teacher's pkg/localllm/llama.go cgo conventions (build
// tag discipline, #include/CFLAGS block shape) adapted from consuming a C
// library to exporting one: this file has no LDFLAGS/native library to
// link against, only the exported Go functions themselves.
package main

/*
#include <stdint.h>

typedef struct amem_scored {
    uint64_t id;
    double score;
} amem_scored;
*/
import "C"

import (
	"unsafe"

	"github.com/agenticmemory/amem/pkg/ffi"
)

func main() {} // required by -buildmode=c-shared, never invoked

func recoverToCode(code *C.int) {
	if r := recover(); r != nil {
		*code = C.int(ffi.INVALID)
	}
}

//export amem_new
func amem_new(dimension C.int) (handle C.longlong, code C.int) {
	defer recoverToCode(&code)
	h, c := ffi.New(int(dimension))
	return C.longlong(h), C.int(c)
}

//export amem_open
func amem_open(path *C.char) (handle C.longlong, code C.int) {
	defer recoverToCode(&code)
	if path == nil {
		return 0, C.int(ffi.NullPtr)
	}
	h, c := ffi.Open(C.GoString(path))
	return C.longlong(h), C.int(c)
}

//export amem_save
func amem_save(handle C.longlong, path *C.char) (code C.int) {
	defer recoverToCode(&code)
	if path == nil {
		return C.int(ffi.NullPtr)
	}
	return C.int(ffi.Save(int64(handle), C.GoString(path)))
}

//export amem_close
func amem_close(handle C.longlong) (code C.int) {
	defer recoverToCode(&code)
	return C.int(ffi.Close(int64(handle)))
}

//export amem_ingest
func amem_ingest(
	handle C.longlong,
	eventType C.uint8_t,
	content *C.char,
	contentLen C.int,
	sessionID C.uint32_t,
	confidence C.float,
	featureVec *C.float,
	featureLen C.int,
	nowMicros C.uint64_t,
	outID *C.uint64_t,
) (code C.int) {
	defer recoverToCode(&code)
	if outID == nil {
		return C.int(ffi.NullPtr)
	}

	var contentStr string
	if content != nil && contentLen > 0 {
		contentStr = C.GoStringN(content, contentLen)
	}

	var vec []float32
	if featureVec != nil && featureLen > 0 {
		src := unsafe.Slice((*float32)(unsafe.Pointer(featureVec)), int(featureLen))
		vec = make([]float32, len(src))
		copy(vec, src)
	}

	id, c := ffi.Ingest(int64(handle), uint8(eventType), contentStr, uint32(sessionID), float32(confidence), vec, uint64(nowMicros))
	if c == ffi.OK {
		*outID = C.uint64_t(id)
	}
	return C.int(c)
}

//export amem_touch
func amem_touch(handle C.longlong, id C.uint64_t, nowMicros C.uint64_t) (code C.int) {
	defer recoverToCode(&code)
	return C.int(ffi.Touch(int64(handle), uint64(id), uint64(nowMicros)))
}

//export amem_similarity
func amem_similarity(
	handle C.longlong,
	query *C.float,
	queryLen C.int,
	topK C.int,
	out *C.amem_scored,
	outCap C.int,
	outCount *C.int,
) (code C.int) {
	defer recoverToCode(&code)
	if query == nil || out == nil || outCount == nil {
		return C.int(ffi.NullPtr)
	}

	src := unsafe.Slice((*float32)(unsafe.Pointer(query)), int(queryLen))
	q := make([]float32, len(src))
	copy(q, src)

	buf := make([]ffi.ScoredResult, int(outCap))
	n, c := ffi.Similarity(int64(handle), q, int(topK), buf)

	dst := unsafe.Slice(out, int(outCap))
	for i := 0; i < n; i++ {
		dst[i] = C.amem_scored{id: C.uint64_t(buf[i].ID), score: C.double(buf[i].Score)}
	}
	*outCount = C.int(n)
	return C.int(c)
}

//export amem_text_search
func amem_text_search(
	handle C.longlong,
	query *C.char,
	queryLen C.int,
	maxResults C.int,
	out *C.amem_scored,
	outCap C.int,
	outCount *C.int,
) (code C.int) {
	defer recoverToCode(&code)
	if query == nil || out == nil || outCount == nil {
		return C.int(ffi.NullPtr)
	}

	queryStr := C.GoStringN(query, queryLen)
	buf := make([]ffi.ScoredResult, int(outCap))
	n, c := ffi.TextSearch(int64(handle), queryStr, int(maxResults), buf)

	dst := unsafe.Slice(out, int(outCap))
	for i := 0; i < n; i++ {
		dst[i] = C.amem_scored{id: C.uint64_t(buf[i].ID), score: C.double(buf[i].Score)}
	}
	*outCount = C.int(n)
	return C.int(c)
}
