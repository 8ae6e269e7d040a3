package decay

import (
	"testing"

	"github.com/agenticmemory/amem/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierEpisodic, TierOf(event.Episode))
	assert.Equal(t, TierProcedural, TierOf(event.Skill))
	assert.Equal(t, TierSemantic, TierOf(event.Fact))
	assert.Equal(t, TierSemantic, TierOf(event.Correction))
	assert.Equal(t, TierSemantic, TierOf(event.Decision))
	assert.Equal(t, TierSemantic, TierOf(event.Inference))
}

func TestScoreDecaysWithElapsedTime(t *testing.T) {
	w := DefaultWeights()
	fresh := Score(event.Fact, 0, 1, 0.8, w)
	aged := Score(event.Fact, 24*200, 1, 0.8, w)
	assert.Greater(t, fresh, aged)
}

func TestScoreIsClampedToUnitRange(t *testing.T) {
	w := DefaultWeights()
	s := Score(event.Skill, 0, 500, 1, w)
	assert.LessOrEqual(t, s, float32(1))
	assert.GreaterOrEqual(t, s, float32(0))
}

func TestEpisodicDecaysFasterThanProcedural(t *testing.T) {
	w := DefaultWeights()
	hours := 24.0 * 30 // 30 days
	episodic := Score(event.Episode, hours, 1, 0, w)
	procedural := Score(event.Skill, hours, 1, 0, w)
	assert.Less(t, episodic, procedural)
}

func TestShouldArchive(t *testing.T) {
	assert.True(t, ShouldArchive(0.01))
	assert.False(t, ShouldArchive(0.5))
}

func TestHalfLifeHoursMatchesTierOrdering(t *testing.T) {
	assert.Less(t, HalfLifeHours(TierEpisodic), HalfLifeHours(TierSemantic))
	assert.Less(t, HalfLifeHours(TierSemantic), HalfLifeHours(TierProcedural))
}
