package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

func pick(id, slot int, captain bool) model.Pick {
	role := model.Starter
	if slot > 11 {
		role = model.Bench
	}
	return model.Pick{
		Projection: model.Projection{PlayerID: id, ExpectedPoints: 4},
		Role:       role,
		Slot:       slot,
		IsCaptain:  captain,
	}
}

func TestBuildResultCaptainDoubled(t *testing.T) {
	picks := []model.Pick{pick(10, 1, false), pick(20, 2, true)}
	live := map[int]LiveStats{
		10: {Minutes: 90, TotalPoints: 6},
		20: {Minutes: 90, TotalPoints: 4},
	}

	r := BuildResult(3, picks, live)
	assert.Equal(t, 14, r.TotalPoints)
	assert.InDelta(t, 12.0, r.Predicted, 1e-9)
	require.Len(t, r.Players, 2)
	assert.Equal(t, 2, r.Players[1].Multiplier)
	assert.Equal(t, 4, r.Players[1].Points, "raw points stay undoubled")
	assert.Equal(t, 3, r.Gameweek)
	assert.NotEmpty(t, r.GeneratedAtUTC)
}

func TestBuildResultBenchExcluded(t *testing.T) {
	picks := []model.Pick{pick(10, 1, false), pick(99, 12, false)}
	live := map[int]LiveStats{
		10: {Minutes: 90, TotalPoints: 6},
		99: {Minutes: 90, TotalPoints: 8},
	}

	r := BuildResult(1, picks, live)
	assert.Equal(t, 6, r.TotalPoints)
	assert.Len(t, r.Players, 1)
}

func TestBuildResultSlotElevenStarts(t *testing.T) {
	r := BuildResult(1, []model.Pick{pick(11, 11, false)}, map[int]LiveStats{11: {Minutes: 90, TotalPoints: 3}})
	assert.Equal(t, 3, r.TotalPoints)
}

func TestBuildResultMissingLiveStats(t *testing.T) {
	picks := []model.Pick{pick(10, 1, false), pick(20, 2, false)}
	r := BuildResult(1, picks, map[int]LiveStats{10: {Minutes: 90, TotalPoints: 5}})
	assert.Equal(t, 5, r.TotalPoints)
	assert.Len(t, r.Players, 2)
}

func TestBuildResultEmpty(t *testing.T) {
	r := BuildResult(1, nil, map[int]LiveStats{})
	assert.Zero(t, r.TotalPoints)
	assert.Empty(t, r.Players)
}
