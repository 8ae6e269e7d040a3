// Package journal is an optional mutation log that sits between
// WriteEngine calls and the next full .amem rewrite. It is not part of the
// container format and never replaces it: a journal only shortens the
// window of data that would be lost if the process dies before the next
// Writer.WriteFile.
//
// Grounded on the teacher's pkg/storage/wal.go (entry shape, sequence
// numbering, checksum-per-entry) adapted onto pkg/storage/badger.go's
// BadgerDB-backed key-value storage instead of a flat append-only file, so
// recovery is a key scan rather than a framed-record replay.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/agenticmemory/amem/pkg/event"
)

// OperationType tags which WriteEngine call an Entry recorded.
type OperationType string

const (
	OpIngest          OperationType = "ingest"
	OpTouch           OperationType = "touch"
	OpCorrect         OperationType = "correct"
	OpCompressSession OperationType = "compress_session"
	OpRunDecay        OperationType = "run_decay"
)

// Entry is a single journaled mutation. Payload is the JSON encoding of one
// of the IngestPayload/TouchPayload/CorrectPayload/CompressSessionPayload/
// RunDecayPayload structs below, chosen by Operation.
type Entry struct {
	Sequence  uint64        `json:"seq"`
	Operation OperationType `json:"op"`
	Payload   json.RawMessage `json:"payload"`
}

type IngestPayload struct {
	Events []event.CognitiveEvent `json:"events"`
	Edges  []event.Edge           `json:"edges"`
}

type TouchPayload struct {
	ID        event.NodeID `json:"id"`
	NowMicros uint64       `json:"now_micros"`
}

type CorrectPayload struct {
	OldID      event.NodeID `json:"old_id"`
	NewContent string       `json:"new_content"`
	Session    uint32       `json:"session"`
	NowMicros  uint64       `json:"now_micros"`
}

type CompressSessionPayload struct {
	SessionID uint32 `json:"session_id"`
	Summary   string `json:"summary"`
	NowMicros uint64 `json:"now_micros"`
}

type RunDecayPayload struct {
	NowMicros uint64 `json:"now_micros"`
}

// CorruptEntryError reports a checksum mismatch found during Replay,
// naming the sequence number so callers can decide whether to stop
// replaying or skip the damaged entry.
type CorruptEntryError struct {
	Sequence uint64
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("journal: entry %d failed checksum verification", e.Sequence)
}

const seqKeyPrefix = "j:"

func seqKey(seq uint64) []byte {
	key := make([]byte, len(seqKeyPrefix)+8)
	copy(key, seqKeyPrefix)
	binary.BigEndian.PutUint64(key[len(seqKeyPrefix):], seq)
	return key
}

// Journal appends mutation records to a BadgerDB instance keyed by a
// monotonically increasing sequence number, so Replay can iterate them back
// in commit order via a plain prefix scan.
type Journal struct {
	db  *badger.DB
	seq uint64
}

// Open opens (creating if needed) a BadgerDB-backed journal at dir. Badger's
// own internal logging is silenced, matching the teacher's quiet-by-default
// BadgerOptions pattern.
func Open(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dir, err)
	}
	j := &Journal{db: db}
	if err := j.loadLastSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// OpenInMemory opens a journal backed by an in-memory Badger instance,
// useful for tests and for embedders who want journal semantics without
// touching disk.
func OpenInMemory() (*Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open in-memory: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) loadLastSequence() error {
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(seqKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seekFrom := append([]byte(seqKeyPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekFrom)
		if !it.ValidForPrefix([]byte(seqKeyPrefix)) {
			return nil
		}
		key := it.Item().KeyCopy(nil)
		j.seq = binary.BigEndian.Uint64(key[len(seqKeyPrefix):])
		return nil
	})
}

// Close releases the underlying BadgerDB handle.
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) append(op OperationType, payload interface{}) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("journal: encode %s payload: %w", op, err)
	}

	j.seq++
	seq := j.seq
	entry := Entry{Sequence: seq, Operation: op, Payload: raw}
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("journal: encode entry %d: %w", seq, err)
	}

	sum := xxhash.Sum64(data)
	record := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(record, sum)
	copy(record[8:], data)

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(seq), record)
	})
	if err != nil {
		return 0, fmt.Errorf("journal: append entry %d: %w", seq, err)
	}
	return seq, nil
}

func (j *Journal) AppendIngest(p IngestPayload) (uint64, error) {
	return j.append(OpIngest, p)
}

func (j *Journal) AppendTouch(p TouchPayload) (uint64, error) {
	return j.append(OpTouch, p)
}

func (j *Journal) AppendCorrect(p CorrectPayload) (uint64, error) {
	return j.append(OpCorrect, p)
}

func (j *Journal) AppendCompressSession(p CompressSessionPayload) (uint64, error) {
	return j.append(OpCompressSession, p)
}

func (j *Journal) AppendRunDecay(p RunDecayPayload) (uint64, error) {
	return j.append(OpRunDecay, p)
}

// Replay walks every entry in sequence order, verifying its checksum and
// invoking handler. Replay stops and returns a *CorruptEntryError on the
// first checksum mismatch rather than skipping silently, since the spec's
// durability story assumes a journal is either trustworthy or abandoned,
// never partially trusted.
func (j *Journal) Replay(handler func(Entry) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(seqKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(seqKeyPrefix)); it.ValidForPrefix([]byte(seqKeyPrefix)); it.Next() {
			key := it.Item().KeyCopy(nil)
			seq := binary.BigEndian.Uint64(key[len(seqKeyPrefix):])

			var record []byte
			if err := it.Item().Value(func(v []byte) error {
				record = append(record, v...)
				return nil
			}); err != nil {
				return fmt.Errorf("journal: read entry %d: %w", seq, err)
			}
			if len(record) < 8 {
				return &CorruptEntryError{Sequence: seq}
			}
			wantSum := binary.BigEndian.Uint64(record[:8])
			data := record[8:]
			if xxhash.Sum64(data) != wantSum {
				return &CorruptEntryError{Sequence: seq}
			}

			var entry Entry
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("journal: decode entry %d: %w", seq, err)
			}
			if err := handler(entry); err != nil {
				return fmt.Errorf("journal: handler rejected entry %d: %w", seq, err)
			}
		}
		return nil
	})
}

// Truncate drops every journaled entry, called after a successful
// Writer.WriteFile rewrite since the .amem file now reflects everything the
// journal was protecting.
func (j *Journal) Truncate() error {
	return j.db.DropPrefix([]byte(seqKeyPrefix))
}
