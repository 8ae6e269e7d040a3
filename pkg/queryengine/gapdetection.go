package queryengine

import (
	"sort"

	"github.com/agenticmemory/amem/pkg/event"
)

// GapSeverity classifies how urgent a reasoning gap is.
type GapSeverity uint8

const (
	GapLow GapSeverity = iota
	GapModerate
	GapDangerous
)

// GapDetectionParams configures GapDetection.
type GapDetectionParams struct {
	ConfidenceThreshold float32
	MinSupportCount     int
	// DownstreamImpactDepth bounds the causal lookup used to decide whether
	// a low-support decision is merely weak or actually dangerous.
	DownstreamImpactDepth uint32
	MaxResults            int
}

// ReasoningGap is a Decision or Inference node whose evidentiary support
// falls short of the configured thresholds.
type ReasoningGap struct {
	ID               event.NodeID
	Confidence       float32
	SupportCount     int
	DownstreamImpact int
	Severity         GapSeverity
}

// GapDetection finds Decision/Inference nodes whose confidence is below
// ConfidenceThreshold or whose count of incoming Supports edges is below
// MinSupportCount. Severity follows a fixed rubric: a Decision with low
// support AND at least one downstream causal dependent (within
// DownstreamImpactDepth) is dangerous; every other reported node is
// moderate. Nodes above both thresholds are not reported, and GapLow is
// never assigned. Results are sorted
// dangerous-first, then by ascending support count, capped at MaxResults.
func (e *Engine) GapDetection(p GapDetectionParams) []ReasoningGap {
	var gaps []ReasoningGap

	for _, n := range e.g.Nodes() {
		if n.EventType != event.Decision && n.EventType != event.Inference {
			continue
		}

		support := 0
		for _, ed := range e.g.EdgesTo(n.ID) {
			if ed.EdgeType == event.Supports {
				support++
			}
		}

		underConfident := n.Confidence < p.ConfidenceThreshold
		underSupported := support < p.MinSupportCount
		if !underConfident && !underSupported {
			continue
		}

		impact := e.Causal(CausalParams{
			NodeID:          n.ID,
			DependencyTypes: []event.EdgeType{event.CausedBy, event.Supports},
			MaxDepth:        p.DownstreamImpactDepth,
		})
		downstream := len(impact.Dependents)

		severity := GapModerate
		if n.EventType == event.Decision && underSupported && downstream > 0 {
			severity = GapDangerous
		}

		gaps = append(gaps, ReasoningGap{
			ID:               n.ID,
			Confidence:       n.Confidence,
			SupportCount:     support,
			DownstreamImpact: downstream,
			Severity:         severity,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Severity != gaps[j].Severity {
			return gaps[i].Severity > gaps[j].Severity
		}
		if gaps[i].SupportCount != gaps[j].SupportCount {
			return gaps[i].SupportCount < gaps[j].SupportCount
		}
		return gaps[i].ID < gaps[j].ID
	})

	if p.MaxResults > 0 && len(gaps) > p.MaxResults {
		gaps = gaps[:p.MaxResults]
	}
	return gaps
}
