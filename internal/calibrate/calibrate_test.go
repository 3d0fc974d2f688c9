package calibrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

func TestCompute(t *testing.T) {
	players := []model.Player{
		{ID: 1, Position: model.Midfielder},
		{ID: 2, Position: model.Midfielder},
		{ID: 3, Position: model.Forward},
		{ID: 4, Position: model.Defender},
	}
	history := []model.GameRecord{
		{PlayerID: 1, Goals: 1, Threat: 40, Assists: 1, Creativity: 30},
		{PlayerID: 2, Goals: 1, Threat: 60, Assists: 0, Creativity: 20},
		{PlayerID: 3, Goals: 2, Threat: 80, Assists: 0, Creativity: 0},
		{PlayerID: 4, Goals: 0, Threat: 0, Assists: 0, Creativity: 0},
		// unknown player is ignored
		{PlayerID: 99, Goals: 10, Threat: 1, Assists: 10, Creativity: 1},
	}

	r := Compute(players, history)

	assert.Len(t, r, 4)
	assert.InDelta(t, 0.02, r[model.Midfielder].ThreatToGoal, 1e-12)
	assert.InDelta(t, 0.02, r[model.Midfielder].CreativityToAssist, 1e-12)
	assert.InDelta(t, 0.025, r[model.Forward].ThreatToGoal, 1e-12)

	// zero denominators give zero, never NaN
	assert.Zero(t, r[model.Forward].CreativityToAssist)
	assert.Zero(t, r[model.Defender].ThreatToGoal)
	assert.Zero(t, r[model.Defender].CreativityToAssist)
	assert.Equal(t, model.ConversionRatio{}, r[model.Goalkeeper])
}

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, nil)
	for _, pos := range model.Positions {
		assert.Equal(t, model.ConversionRatio{}, r[pos], pos.String())
	}
}

func TestRatiosNonNegative(t *testing.T) {
	players := []model.Player{{ID: 1, Position: model.Forward}}
	history := []model.GameRecord{
		{PlayerID: 1, Goals: 0, Threat: 12.5, Assists: 3, Creativity: 0.5},
		{PlayerID: 1, Goals: 4, Threat: 0, Assists: 0, Creativity: 7},
	}
	r := Compute(players, history)
	for _, pos := range model.Positions {
		assert.GreaterOrEqual(t, r[pos].ThreatToGoal, 0.0)
		assert.GreaterOrEqual(t, r[pos].CreativityToAssist, 0.0)
	}
}
