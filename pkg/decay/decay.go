// Package decay implements AgenticMemory's exponential decay curve: each
// CognitiveEvent's decay_score fades over time since last access and is
// restored by touch/reinforcement, following a three-tier half-life scheme
// keyed off EventType rather than an explicit tier field.
//
// Tiers, by EventType:
//   - episodic (7-day half-life): Episode
//   - semantic (69-day half-life): Fact, Correction, Decision, Inference
//   - procedural (693-day half-life): Skill
package decay

import (
	"math"

	"github.com/agenticmemory/amem/pkg/event"
)

// Tier names the three decay curves a CognitiveEvent can follow.
type Tier uint8

const (
	TierEpisodic Tier = iota
	TierSemantic
	TierProcedural
)

// TierOf derives the decay tier from a node's EventType.
func TierOf(et event.EventType) Tier {
	switch et {
	case event.Episode:
		return TierEpisodic
	case event.Skill:
		return TierProcedural
	default:
		return TierSemantic
	}
}

// lambda values are per-hour exponential decay rates: score = exp(-lambda *
// hoursSinceAccess). halfLife = ln(2) / lambda.
var tierLambda = map[Tier]float64{
	TierEpisodic:   0.00412,   // ~7 day half-life
	TierSemantic:   0.000418,  // ~69 day half-life
	TierProcedural: 0.0000417, // ~693 day half-life
}

var tierBaseImportance = map[Tier]float64{
	TierEpisodic:   0.3,
	TierSemantic:   0.6,
	TierProcedural: 0.9,
}

// Weights combine recency, frequency, and importance into one score. They
// should sum to 1.0.
type Weights struct {
	Recency    float64
	Frequency  float64
	Importance float64
}

// DefaultWeights matches the teacher's balanced default split.
func DefaultWeights() Weights {
	return Weights{Recency: 0.4, Frequency: 0.3, Importance: 0.3}
}

const maxAccessesForFrequency = 100.0

// Score computes the current decay score for a node, given hours elapsed
// since its last access, its access count, and its manual confidence (used
// as the importance override when non-zero; otherwise the tier default
// applies). The result is clamped to [0, 1].
func Score(et event.EventType, hoursSinceAccess float64, accessCount uint32, confidence float32, w Weights) float32 {
	tier := TierOf(et)
	lambda := tierLambda[tier]
	recency := math.Exp(-lambda * hoursSinceAccess)

	frequency := math.Log(1+float64(accessCount)) / math.Log(1+maxAccessesForFrequency)
	if frequency > 1 {
		frequency = 1
	}

	importance := float64(confidence)
	if importance == 0 {
		importance = tierBaseImportance[tier]
	}

	score := w.Recency*recency + w.Frequency*frequency + w.Importance*importance
	return event.ClampFloat(float32(score))
}

// HalfLifeHours returns the configured half-life, in hours, for tier.
func HalfLifeHours(tier Tier) float64 {
	lambda := tierLambda[tier]
	if lambda == 0 {
		return 0
	}
	return math.Ln2 / lambda
}

// ArchiveThreshold is the score below which run_decay counts a node as an
// archival candidate — this package only scores; callers decide what to do
// below threshold.
const ArchiveThreshold = 0.05

// ShouldArchive reports whether score has decayed past ArchiveThreshold.
func ShouldArchive(score float32) bool {
	return score < ArchiveThreshold
}
