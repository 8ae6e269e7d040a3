package journal

import (
	"encoding/json"
	"fmt"

	"github.com/agenticmemory/amem/pkg/decay"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/graph"
	"github.com/agenticmemory/amem/pkg/writeengine"
)

func unmarshalPayload(entry Entry, dst interface{}) error {
	if err := json.Unmarshal(entry.Payload, dst); err != nil {
		return fmt.Errorf("journal: decode %s payload for entry %d: %w", entry.Operation, entry.Sequence, err)
	}
	return nil
}

// Engine wraps a writeengine.Engine so every mutating call is durably
// appended to a Journal before it returns. It is a drop-in replacement for
// writeengine.Engine at call sites that want journal-backed recovery.
type Engine struct {
	we *writeengine.Engine
	j  *Journal
}

// New wraps g with both a writeengine.Engine and j.
func New(g *graph.MemoryGraph, j *Journal) *Engine {
	return &Engine{we: writeengine.New(g), j: j}
}

func (e *Engine) Ingest(events []event.CognitiveEvent, edges []event.Edge) ([]event.NodeID, error) {
	ids, err := e.we.Ingest(events, edges)
	if err != nil {
		return ids, err
	}
	if _, jerr := e.j.AppendIngest(IngestPayload{Events: events, Edges: edges}); jerr != nil {
		return ids, jerr
	}
	return ids, nil
}

func (e *Engine) Touch(id event.NodeID, nowMicros uint64) error {
	if err := e.we.Touch(id, nowMicros); err != nil {
		return err
	}
	_, err := e.j.AppendTouch(TouchPayload{ID: id, NowMicros: nowMicros})
	return err
}

func (e *Engine) Correct(oldID event.NodeID, newContent string, session uint32, nowMicros uint64) (event.NodeID, error) {
	newID, err := e.we.Correct(oldID, newContent, session, nowMicros)
	if err != nil {
		return newID, err
	}
	_, jerr := e.j.AppendCorrect(CorrectPayload{OldID: oldID, NewContent: newContent, Session: session, NowMicros: nowMicros})
	return newID, jerr
}

func (e *Engine) CompressSession(sessionID uint32, summary string, nowMicros uint64) (event.NodeID, error) {
	episodeID, err := e.we.CompressSession(sessionID, summary, nowMicros)
	if err != nil {
		return episodeID, err
	}
	_, jerr := e.j.AppendCompressSession(CompressSessionPayload{SessionID: sessionID, Summary: summary, NowMicros: nowMicros})
	return episodeID, jerr
}

func (e *Engine) RunDecay(nowMicros uint64, w decay.Weights) (writeengine.DecayReport, error) {
	report := e.we.RunDecay(nowMicros, w)
	_, err := e.j.AppendRunDecay(RunDecayPayload{NowMicros: nowMicros})
	return report, err
}

// ReplayInto applies every entry in j, in sequence order, to g via a fresh
// writeengine.Engine. Used to recover the mutations that happened between
// the last .amem rewrite and a crash.
func ReplayInto(j *Journal, g *graph.MemoryGraph) error {
	we := writeengine.New(g)
	return j.Replay(func(entry Entry) error {
		switch entry.Operation {
		case OpIngest:
			var p IngestPayload
			if err := unmarshalPayload(entry, &p); err != nil {
				return err
			}
			_, err := we.Ingest(p.Events, p.Edges)
			return err
		case OpTouch:
			var p TouchPayload
			if err := unmarshalPayload(entry, &p); err != nil {
				return err
			}
			return we.Touch(p.ID, p.NowMicros)
		case OpCorrect:
			var p CorrectPayload
			if err := unmarshalPayload(entry, &p); err != nil {
				return err
			}
			_, err := we.Correct(p.OldID, p.NewContent, p.Session, p.NowMicros)
			return err
		case OpCompressSession:
			var p CompressSessionPayload
			if err := unmarshalPayload(entry, &p); err != nil {
				return err
			}
			_, err := we.CompressSession(p.SessionID, p.Summary, p.NowMicros)
			return err
		case OpRunDecay:
			var p RunDecayPayload
			if err := unmarshalPayload(entry, &p); err != nil {
				return err
			}
			we.RunDecay(p.NowMicros, decay.DefaultWeights())
			return nil
		default:
			return nil
		}
	})
}
