package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
	"github.com/agenticmemory/amem/pkg/writeengine"
)

// ConsolidationParams selects which sub-operations Consolidation performs
// and whether it applies its findings or only reports them.
type ConsolidationParams struct {
	Deduplicate        bool
	DuplicateThreshold float64

	LinkContradictions     bool
	ContradictionThreshold float64

	PromoteInferences  bool
	PromoteMinSupport  int
	PromoteMinAgeHours float64
	NowMicros          uint64

	Prune bool

	CompressEpisodes     bool
	CompressMinGroupSize int

	// Confirm applies the proposed changes to the graph; when false (the
	// default) Consolidation only reports what it would do.
	Confirm bool
}

// DuplicateGroup is a cluster of near-duplicate Facts with a chosen
// representative.
type DuplicateGroup struct {
	Representative event.NodeID
	Duplicates     []event.NodeID
}

// ProposedContradiction is a pair of unlinked nodes whose text and vector
// signals suggest mutual contradiction.
type ProposedContradiction struct {
	A, B event.NodeID
}

// ConsolidationReport summarizes what Consolidation found (and, when
// Confirm is set, applied).
type ConsolidationReport struct {
	DuplicateGroups   []DuplicateGroup
	Contradictions    []ProposedContradiction
	PromotedToFact    []event.NodeID
	Orphans           []event.NodeID
	EpisodeCandidates []uint32 // session ids with enough members to compress
	Applied           bool
}

// Consolidation runs the requested sub-operations against the graph and
// returns a report. By default every sub-operation is a dry run; setting
// Confirm rewires duplicates' inbound edges to their representative and
// removes the duplicates, adds Contradicts edges, changes promoted nodes'
// event type to Fact, and removes orphans, all directly on the graph, then
// compresses episode candidates through a writeengine.Engine. No node's
// confidence is changed.
//
// Grounded on the teacher's pkg/inference/inference.go materialization
// flow (OnStore/ProcessSuggestion/RecordMaterialization threshold-gated
// promotion of suggested edges into real ones), adapted here to operate in
// a single explicit batch call rather than on every store/access event.
func (e *Engine) Consolidation(p ConsolidationParams) ConsolidationReport {
	var report ConsolidationReport

	if p.Deduplicate {
		report.DuplicateGroups = e.findDuplicates(p.DuplicateThreshold)
	}
	if p.LinkContradictions {
		report.Contradictions = e.findContradictions(p.ContradictionThreshold)
	}
	if p.PromoteInferences {
		report.PromotedToFact = e.findPromotable(p.PromoteMinSupport, p.PromoteMinAgeHours, p.NowMicros)
	}
	if p.Prune {
		report.Orphans = e.findOrphans()
	}
	if p.CompressEpisodes {
		report.EpisodeCandidates = e.findCompressibleSessions(p.CompressMinGroupSize)
	}

	if !p.Confirm {
		return report
	}
	report.Applied = true

	we := writeengine.New(e.g)
	for _, g := range report.DuplicateGroups {
		for _, dupID := range g.Duplicates {
			e.rewireInbound(dupID, g.Representative)
			_ = e.g.RemoveNode(dupID)
		}
	}
	for _, c := range report.Contradictions {
		_ = e.g.AddEdge(event.Edge{SourceID: c.A, TargetID: c.B, EdgeType: event.Contradicts, Weight: 1.0, CreatedAt: p.NowMicros})
	}
	for _, id := range report.PromotedToFact {
		_ = e.g.MutateNode(id, func(n *event.CognitiveEvent) { n.EventType = event.Fact })
	}
	for _, id := range report.Orphans {
		_ = e.g.RemoveNode(id)
	}
	for _, sess := range report.EpisodeCandidates {
		_, _ = we.CompressSession(sess, "", p.NowMicros)
	}

	return report
}

// findDuplicates clusters Facts whose pairwise cosine similarity is at least
// threshold using a simple union-find-free greedy pass: each unclustered
// Fact seeds a group and absorbs every later Fact at or above threshold.
func (e *Engine) findDuplicates(threshold float64) []DuplicateGroup {
	facts := e.g.TypeIndex().Get(event.Fact)
	claimed := make(map[event.NodeID]bool, len(facts))
	var groups []DuplicateGroup

	for _, seedID := range facts {
		if claimed[seedID] {
			continue
		}
		seed, err := e.g.GetNode(seedID)
		if err != nil {
			continue
		}
		claimed[seedID] = true
		members := []event.CognitiveEvent{seed}

		for _, otherID := range facts {
			if claimed[otherID] {
				continue
			}
			other, err := e.g.GetNode(otherID)
			if err != nil {
				continue
			}
			if vector.CosineSimilarity(seed.FeatureVec, other.FeatureVec) < threshold {
				continue
			}
			claimed[otherID] = true
			members = append(members, other)
		}
		if len(members) < 2 {
			continue
		}

		best := members[0]
		for _, m := range members[1:] {
			if m.Confidence > best.Confidence {
				best = m
			}
		}
		group := DuplicateGroup{Representative: best.ID}
		for _, m := range members {
			if m.ID != best.ID {
				group.Duplicates = append(group.Duplicates, m.ID)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// findContradictions scans unlinked node pairs for mutual-contradiction
// signals: high vector similarity (same topic) combined with opposing
// lexical polarity, reusing the belief_revision heuristic.
func (e *Engine) findContradictions(threshold float64) []ProposedContradiction {
	nodes := e.g.Nodes()
	var out []ProposedContradiction
	linked := make(map[[2]event.NodeID]bool)
	for _, ed := range e.g.Edges() {
		if ed.EdgeType == event.Contradicts {
			linked[[2]event.NodeID{ed.SourceID, ed.TargetID}] = true
			linked[[2]event.NodeID{ed.TargetID, ed.SourceID}] = true
		}
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			if linked[[2]event.NodeID{a.ID, b.ID}] {
				continue
			}
			if vector.CosineSimilarity(a.FeatureVec, b.FeatureVec) < threshold {
				continue
			}
			if !opposesPolarity(a.Content, b.Content) {
				continue
			}
			out = append(out, ProposedContradiction{A: a.ID, B: b.ID})
		}
	}
	return out
}

// findPromotable finds Inference nodes old enough and well-enough
// supported (incoming Supports edges) to upgrade to Fact.
func (e *Engine) findPromotable(minSupport int, minAgeHours float64, nowMicros uint64) []event.NodeID {
	var out []event.NodeID
	for _, id := range e.g.TypeIndex().Get(event.Inference) {
		n, err := e.g.GetNode(id)
		if err != nil {
			continue
		}
		ageHours := float64(nowMicros-n.CreatedAt) / float64(microsPerHourConsolidation)
		if ageHours < minAgeHours {
			continue
		}
		support := 0
		for _, ed := range e.g.EdgesTo(id) {
			if ed.EdgeType == event.Supports {
				support++
			}
		}
		if support >= minSupport {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

const microsPerHourConsolidation = 1_000_000 * 60 * 60

// findOrphans reports nodes with neither incoming nor outgoing edges.
func (e *Engine) findOrphans() []event.NodeID {
	var out []event.NodeID
	for _, n := range e.g.Nodes() {
		if len(e.g.EdgesFrom(n.ID)) == 0 && len(e.g.EdgesTo(n.ID)) == 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

// findCompressibleSessions reports sessions with at least minGroupSize
// member nodes not yet rolled up into an Episode.
func (e *Engine) findCompressibleSessions(minGroupSize int) []uint32 {
	var out []uint32
	for _, sess := range e.g.SessionIndex().Sessions() {
		members := e.g.SessionIndex().Get(sess)
		hasEpisode := false
		for _, id := range members {
			if n, err := e.g.GetNode(id); err == nil && n.EventType == event.Episode {
				hasEpisode = true
				break
			}
		}
		if !hasEpisode && len(members) >= minGroupSize {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// rewireInbound redirects every edge targeting from onto to, skipping
// self-edges and edges that would duplicate an existing one.
func (e *Engine) rewireInbound(from, to event.NodeID) {
	for _, ed := range e.g.EdgesTo(from) {
		if ed.SourceID == to {
			continue
		}
		_ = e.g.AddEdge(event.Edge{SourceID: ed.SourceID, TargetID: to, EdgeType: ed.EdgeType, Weight: ed.Weight, CreatedAt: ed.CreatedAt})
	}
}
