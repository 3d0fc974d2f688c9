package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
)

const testRound = 6

// league builds eight clubs of six players (1 GK, 2 DEF, 2 MID, 1 FWD) with five played rounds
// and one upcoming round of fixtures.
func league() ([]model.Player, []model.GameRecord, []model.FixtureContext) {
	layout := []model.Position{
		model.Goalkeeper, model.Defender, model.Defender,
		model.Midfielder, model.Midfielder, model.Forward,
	}
	var players []model.Player
	var history []model.GameRecord
	id := 1
	for team := 1; team <= 8; team++ {
		for slot, pos := range layout {
			players = append(players, model.Player{
				ID:       id,
				Name:     "P" + string(rune('A'+slot)),
				Team:     team,
				Position: pos,
				Cost:     40 + (id*7)%45,
				Status:   model.Available,
			})
			for r := 1; r < testRound; r++ {
				history = append(history, model.GameRecord{
					PlayerID:      id,
					Round:         r,
					FixtureID:     r*100 + team,
					Minutes:       60 + (id+r)%31,
					Goals:         (id + r) % 3 / 2,
					Assists:       (id + 2*r) % 4 / 3,
					CleanSheet:    (team + r) % 2,
					GoalsConceded: (team + r) % 3,
					Saves:         (id * r) % 5,
					Bonus:         (id + r) % 4 / 3,
					Threat:        float64((id*3+r)%40) + 2,
					Creativity:    float64((id*5+r)%30) + 1,
				})
			}
			id++
		}
	}
	var fixtures []model.Fixture
	for i := 0; i < 4; i++ {
		fixtures = append(fixtures, model.Fixture{
			ID:             600 + i,
			Round:          testRound,
			HomeTeam:       2*i + 1,
			AwayTeam:       2*i + 2,
			HomeDifficulty: 2 + i%3,
			AwayDifficulty: 4 - i%3,
		})
	}
	return players, history, model.FixtureContexts(fixtures, testRound)
}

func newPipeline() *Pipeline {
	opt := squad.New(solver.NewBranchAndBound(zerolog.Nop()), zerolog.Nop())
	return New(DefaultConfig(), opt, zerolog.Nop())
}

func TestRunProducesValidLineup(t *testing.T) {
	players, history, fixtures := league()
	snap := NewSnapshot(testRound, players, history, fixtures)

	res, err := newPipeline().Run(context.Background(), snap)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, testRound, res.Round)
	assert.Equal(t, "fpl-2025-26", res.Ruleset)
	assert.Len(t, res.Projections, len(players))
	require.NoError(t, squad.DefaultRules().Check(res.Squad, squad.DefaultBudget))

	lu := res.Lineup
	require.Len(t, lu.Starters, 11)
	require.Len(t, lu.Bench, 4)
	assert.NotEqual(t, lu.Captain, lu.ViceCaptain)

	total := 0.0
	var captainEP float64
	for _, p := range lu.Starters {
		total += p.ExpectedPoints
		if p.PlayerID == lu.Captain {
			captainEP = p.ExpectedPoints
		}
	}
	assert.InDelta(t, total+captainEP, lu.ExpectedPoints, 1e-9)
}

func TestRunIsDeterministic(t *testing.T) {
	players, history, fixtures := league()
	snap := NewSnapshot(testRound, players, history, fixtures)
	p := newPipeline()

	first, err := p.Run(context.Background(), snap)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, first.Projections, second.Projections)
	assert.Equal(t, first.Squad, second.Squad)
	assert.Equal(t, first.Lineup, second.Lineup)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunEmptyPlayers(t *testing.T) {
	snap := NewSnapshot(testRound, nil, nil, nil)
	res, err := newPipeline().Run(context.Background(), snap)
	require.ErrorIs(t, err, squad.ErrInfeasible)
	require.NotNil(t, res)
	assert.Empty(t, res.Projections)
	assert.Empty(t, res.Lineup.Starters)
}

func TestRunExcludesUnavailable(t *testing.T) {
	players, history, fixtures := league()
	players[0].Status = model.Injured
	players[1].Status = model.Suspended
	snap := NewSnapshot(testRound, players, history, fixtures)

	res, err := newPipeline().Project(snap)
	require.NoError(t, err)
	assert.Len(t, res.Projections, len(players)-2)
	assert.Equal(t, 2, res.Excluded.Total())
	for _, p := range res.Projections {
		assert.NotEqual(t, players[0].ID, p.PlayerID)
		assert.NotEqual(t, players[1].ID, p.PlayerID)
	}
}

func TestSnapshotIsolatedFromInputs(t *testing.T) {
	players, history, fixtures := league()
	snap := NewSnapshot(testRound, players, history, fixtures)
	players[0].Status = model.Injured
	history[0].Minutes = 0

	got, err := snap.Players(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Available, got[0].Status)

	recs, err := snap.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, testRound-1)
	assert.NotZero(t, recs[0].Minutes)

	// Callers get copies.
	got[0].Status = model.Injured
	again, _ := snap.Players(context.Background())
	assert.Equal(t, model.Available, again[0].Status)
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	players, history, fixtures := league()
	snap := NewSnapshot(testRound, players, history, fixtures)
	path := filepath.Join(t.TempDir(), "snapshots", "gw6.msgpack")

	require.NoError(t, snap.WriteFile(path))
	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, snap.Round, loaded.Round)
	assert.Equal(t, snap.Roster, loaded.Roster)
	assert.Equal(t, snap.Records, loaded.Records)
	assert.Equal(t, snap.Fixtures, loaded.Fixtures)

	p := newPipeline()
	a, err := p.Project(snap)
	require.NoError(t, err)
	b, err := p.Project(loaded)
	require.NoError(t, err)
	assert.Equal(t, a.Projections, b.Projections)
}

// perPlayerStore only implements the narrow interface.
type perPlayerStore struct {
	players  []model.Player
	history  []model.GameRecord
	fixtures []model.FixtureContext
}

func (s perPlayerStore) Players(ctx context.Context) ([]model.Player, error) {
	return s.players, nil
}

func (s perPlayerStore) History(ctx context.Context, id int) ([]model.GameRecord, error) {
	var out []model.GameRecord
	for _, r := range s.history {
		if r.PlayerID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s perPlayerStore) UpcomingFixtures(ctx context.Context, round int) ([]model.FixtureContext, error) {
	var out []model.FixtureContext
	for _, f := range s.fixtures {
		if f.Round == round {
			out = append(out, f)
		}
	}
	return out, nil
}

func TestBuildFromStore(t *testing.T) {
	players, history, fixtures := league()
	st := perPlayerStore{players: players, history: history, fixtures: fixtures}

	snap, err := Build(context.Background(), st, testRound)
	require.NoError(t, err)
	direct := NewSnapshot(testRound, players, history, fixtures)

	assert.Equal(t, direct.Roster, snap.Roster)
	assert.Equal(t, direct.Records, snap.Records)
	assert.Equal(t, direct.Fixtures, snap.Fixtures)
}
