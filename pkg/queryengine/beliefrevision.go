package queryengine

import (
	"strings"

	"github.com/agenticmemory/amem/pkg/bm25"
	"github.com/agenticmemory/amem/pkg/event"
	"github.com/agenticmemory/amem/pkg/math/vector"
)

// BeliefRevisionParams configures BeliefRevision.
type BeliefRevisionParams struct {
	Hypothesis            string
	HypothesisVec         []float32
	ContradictionThreshold float64
	MaxDepth              uint32
}

// Contradiction is a node whose content or embedding opposes Hypothesis.
type Contradiction struct {
	ID                 event.NodeID
	Similarity         float64
	OriginalConfidence float32
	Affected           []event.NodeID // causal impact of retracting this node
}

// BeliefRevisionResult reports the contradictions found and their combined
// downstream impact.
type BeliefRevisionResult struct {
	Contradictions []Contradiction
	AffectedTotal  int
}

// negationWords is the fixed lexical set used to detect polarity
// disagreement between a node's content and the hypothesis: if exactly one
// of the two strings contains a negation word and they share at least one
// bm25 token, they are treated as opposed.
var negationWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "isn't": {}, "aren't": {}, "wasn't": {},
	"weren't": {}, "cannot": {}, "can't": {}, "won't": {}, "doesn't": {},
	"don't": {}, "didn't": {},
}

func hasNegation(text string) bool {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if _, ok := negationWords[tok]; ok {
			return true
		}
	}
	return false
}

// opposesPolarity reports whether a and b disagree on negation while
// sharing at least one non-stopword term, a cheap heuristic for "these two
// statements are about the same thing but say opposite things".
func opposesPolarity(a, b string) bool {
	if hasNegation(a) == hasNegation(b) {
		return false
	}
	aTokens := bm25.Tokenize(a)
	bSet := make(map[string]struct{}, len(bm25.Tokenize(b)))
	for _, t := range bm25.Tokenize(b) {
		bSet[t] = struct{}{}
	}
	shared := 0
	for _, t := range aTokens {
		if _, ok := bSet[t]; ok {
			shared++
		}
	}
	return shared > 0
}

// BeliefRevision scores every node's similarity to Hypothesis; any node
// above ContradictionThreshold whose polarity opposes the hypothesis is a
// contradiction. From each contradiction, causal impact is propagated up to
// MaxDepth along CausedBy/Supports edges and reported as the affected set.
func (e *Engine) BeliefRevision(p BeliefRevisionParams) BeliefRevisionResult {
	var result BeliefRevisionResult
	affected := make(map[event.NodeID]struct{})

	for _, n := range e.g.Nodes() {
		sim := vector.CosineSimilarity(p.HypothesisVec, n.FeatureVec)
		if sim < p.ContradictionThreshold {
			continue
		}
		if !opposesPolarity(p.Hypothesis, n.Content) {
			continue
		}

		impact := e.Causal(CausalParams{
			NodeID:          n.ID,
			DependencyTypes: []event.EdgeType{event.CausedBy, event.Supports},
			MaxDepth:        p.MaxDepth,
		})
		for _, id := range impact.Dependents {
			affected[id] = struct{}{}
		}

		result.Contradictions = append(result.Contradictions, Contradiction{
			ID:                 n.ID,
			Similarity:         sim,
			OriginalConfidence: n.Confidence,
			Affected:           impact.Dependents,
		})
	}

	result.AffectedTotal = len(affected)
	return result
}
