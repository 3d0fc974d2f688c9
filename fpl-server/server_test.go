package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/projection"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
)

const nextGW = 6

// tmpCfg seeds an in-memory database with eight clubs of six players, five played rounds and the
// fixtures of round 6.
func tmpCfg(t *testing.T) ServerConfig {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))
	repo := repository.New(db, zerolog.Nop())

	layout := []model.Position{
		model.Goalkeeper, model.Defender, model.Defender,
		model.Midfielder, model.Midfielder, model.Forward,
	}
	var (
		teams    []model.Team
		players  []model.Player
		history  []model.GameRecord
		fixtures []model.Fixture
	)
	id := 1
	for team := 1; team <= 8; team++ {
		teams = append(teams, model.Team{ID: team, Name: fmt.Sprintf("Club %d", team), ShortName: fmt.Sprintf("C%02d", team)})
		for slot, pos := range layout {
			players = append(players, model.Player{
				ID:       id,
				Name:     fmt.Sprintf("P%d-%d", team, slot),
				Team:     team,
				Position: pos,
				Cost:     40 + (id*7)%45,
				Status:   model.Available,
			})
			for r := 1; r < nextGW; r++ {
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
	players[0].Status = model.Injured
	teams = append(teams, model.Team{ID: 9, Name: "Club 9", ShortName: "C09"})
	for i := 0; i < 4; i++ {
		fixtures = append(fixtures, model.Fixture{
			ID:             600 + i,
			Round:          nextGW,
			HomeTeam:       2*i + 1,
			AwayTeam:       2*i + 2,
			HomeDifficulty: 2 + i%3,
			AwayDifficulty: 4 - i%3,
		})
	}
	fixtures = append(fixtures, model.Fixture{ID: 500, Round: 5, HomeTeam: 1, AwayTeam: 2, Finished: true})

	require.NoError(t, repo.SaveTeams(ctx, teams))
	_, err = repo.SavePlayers(ctx, players)
	require.NoError(t, err)
	require.NoError(t, repo.SaveHistory(ctx, history))
	require.NoError(t, repo.SaveFixtures(ctx, fixtures))

	return ServerConfig{
		Repo:      repo,
		Pipeline:  pipeline.DefaultConfig(),
		Optimizer: squad.New(solver.NewBranchAndBound(zerolog.Nop()), zerolog.Nop()),
		Log:       zerolog.Nop(),
	}
}

func TestBuildProjections(t *testing.T) {
	cfg := tmpCfg(t)
	out, err := buildProjections(context.Background(), cfg, ProjectionsArgs{})
	require.NoError(t, err)

	assert.Equal(t, nextGW, out.Gameweek)
	assert.Equal(t, "fpl-2025-26", out.Ruleset)
	assert.Equal(t, 47, out.Projected)
	assert.Equal(t, projection.Tally{projection.ReasonUnavailable: 1}, out.Excluded)
	require.Len(t, out.Players, 20)
	for i, p := range out.Players {
		assert.Equal(t, i+1, p.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Players[i-1].ExpectedPoints, p.ExpectedPoints)
		}
	}
}

func TestBuildProjectionsFilters(t *testing.T) {
	cfg := tmpCfg(t)
	out, err := buildProjections(context.Background(), cfg, ProjectionsArgs{GW: nextGW, Position: "fwd", Limit: -1})
	require.NoError(t, err)
	require.Len(t, out.Players, 8)
	for _, p := range out.Players {
		assert.Equal(t, "FWD", p.Position)
		assert.NotEmpty(t, p.OpponentShort)
	}

	_, err = buildProjections(context.Background(), cfg, ProjectionsArgs{Position: "striker"})
	assert.Error(t, err)
}

func TestBuildPlayerProjection(t *testing.T) {
	cfg := tmpCfg(t)
	ctx := context.Background()

	out, err := buildPlayerProjection(ctx, cfg, PlayerProjectionArgs{ElementID: 1})
	require.NoError(t, err)
	assert.Equal(t, projection.ReasonUnavailable, out.Excluded)
	assert.Nil(t, out.Projection)

	out, err = buildPlayerProjection(ctx, cfg, PlayerProjectionArgs{ElementID: 4})
	require.NoError(t, err)
	assert.Empty(t, out.Excluded)
	require.NotNil(t, out.Breakdown)
	assert.InDelta(t, out.Projection.ExpectedPoints, out.Breakdown.Total, 1e-12)
	assert.Equal(t, "MID", out.Projection.Position)
	assert.Equal(t, "H", out.Projection.Venue)

	_, err = buildPlayerProjection(ctx, cfg, PlayerProjectionArgs{ElementID: 999})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBuildOptimalSquad(t *testing.T) {
	cfg := tmpCfg(t)
	out, err := buildOptimalSquad(context.Background(), cfg, OptimalSquadArgs{Budget: 150})
	require.NoError(t, err)

	assert.Equal(t, nextGW, out.Gameweek)
	assert.InDelta(t, 150.0, out.Budget, 1e-9)
	assert.LessOrEqual(t, out.TotalCost, 150.0)
	require.Len(t, out.Picks, 15)
	starters, captains := 0, 0
	for _, p := range out.Picks {
		if p.Starter {
			starters++
		}
		if p.IsCaptain {
			captains++
			assert.Equal(t, out.Captain, p.PlayerID)
		}
		assert.NotEqual(t, 1, p.PlayerID, "injured keeper never picked")
	}
	assert.Equal(t, 11, starters)
	assert.Equal(t, 1, captains)
}

func TestBuildOptimalSquadTinyBudget(t *testing.T) {
	cfg := tmpCfg(t)
	_, err := buildOptimalSquad(context.Background(), cfg, OptimalSquadArgs{Budget: 10})
	assert.ErrorIs(t, err, squad.ErrInfeasible)

	_, err = buildOptimalSquad(context.Background(), cfg, OptimalSquadArgs{Budget: -1})
	assert.Error(t, err)
}

func TestLookupPlayerAndHistory(t *testing.T) {
	cfg := tmpCfg(t)
	ctx := context.Background()

	p, err := lookupPlayer(ctx, cfg, 7)
	require.NoError(t, err)
	assert.Equal(t, "C02", p.TeamShort)
	assert.Equal(t, "GK", p.Position)
	assert.True(t, p.Selectable)

	h, err := buildPlayerHistory(ctx, cfg, PlayerHistoryArgs{ElementID: 7, Last: 2})
	require.NoError(t, err)
	require.Len(t, h.Records, 2)
	assert.Equal(t, 4, h.Records[0].Round)
	assert.Equal(t, 5, h.Records[1].Round)

	_, err = lookupPlayer(ctx, cfg, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBuildFixtureDifficulty(t *testing.T) {
	cfg := tmpCfg(t)
	out, err := buildFixtureDifficulty(context.Background(), cfg, FixturesArgs{})
	require.NoError(t, err)

	assert.Equal(t, nextGW, out.Gameweek)
	require.Len(t, out.Sides, 8)
	first := out.Sides[0]
	assert.Equal(t, 2, first.Difficulty)
	assert.Equal(t, "H", first.Venue)
	assert.Equal(t, 600, first.FixtureID)
	for i := 1; i < len(out.Sides); i++ {
		assert.LessOrEqual(t, out.Sides[i-1].Difficulty, out.Sides[i].Difficulty)
		assert.True(t, out.Sides[i].Projected)
	}
	assert.Equal(t, []string{"C09"}, out.Blank)
}

func storedProjection(id int, ep float64) model.Projection {
	return model.Projection{
		PlayerID:       id,
		Round:          nextGW,
		Fixture:        model.FixtureContext{Round: nextGW, Opponent: 2, Home: true, Difficulty: 3},
		ExpectedPoints: ep,
	}
}

func TestBuildPlayerPredictions(t *testing.T) {
	cfg := tmpCfg(t)
	ctx := context.Background()

	_, err := buildPlayerPredictions(ctx, cfg, PlayerPredictionsArgs{})
	assert.Error(t, err)

	projs := []model.Projection{storedProjection(2, 3), storedProjection(3, 7), storedProjection(4, 5)}
	require.NoError(t, cfg.Repo.SavePredictions(ctx, "run-1", projs))

	out, err := buildPlayerPredictions(ctx, cfg, PlayerPredictionsArgs{})
	require.NoError(t, err)
	assert.Equal(t, nextGW, out.Gameweek)
	assert.Equal(t, 3, out.Total)
	require.Len(t, out.Players, 3)
	assert.Equal(t, []int{3, 4, 2}, []int{out.Players[0].PlayerID, out.Players[1].PlayerID, out.Players[2].PlayerID})
	top := out.Players[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "P1-2", top.Name)
	assert.Equal(t, "C01", top.TeamShort)
	assert.Equal(t, "DEF", top.Position)
	assert.Equal(t, "C02", top.OpponentShort)
	assert.Equal(t, "H", top.Venue)
	assert.Equal(t, "run-1", top.RunID)

	out, err = buildPlayerPredictions(ctx, cfg, PlayerPredictionsArgs{GW: nextGW, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.Len(t, out.Players, 2)
}

func TestBuildMyTeam(t *testing.T) {
	cfg := tmpCfg(t)
	ctx := context.Background()

	_, err := buildMyTeam(ctx, cfg, MyTeamArgs{})
	assert.Error(t, err)

	older := model.Lineup{Round: nextGW - 1, Starters: []model.Projection{storedProjection(5, 1)}, Captain: 5}
	older.Starters[0].Round = nextGW - 1
	require.NoError(t, cfg.Repo.SaveLineup(ctx, "run-0", older))
	lu := model.Lineup{
		Round:       nextGW,
		Starters:    []model.Projection{storedProjection(2, 4), storedProjection(3, 6)},
		Bench:       []model.Projection{storedProjection(7, 1)},
		Captain:     3,
		ViceCaptain: 2,
	}
	require.NoError(t, cfg.Repo.SaveLineup(ctx, "run-1", lu))

	out, err := buildMyTeam(ctx, cfg, MyTeamArgs{})
	require.NoError(t, err)
	assert.Equal(t, nextGW, out.Gameweek)
	assert.Equal(t, 3, out.Captain)
	assert.Equal(t, 2, out.ViceCaptain)
	assert.InDelta(t, 16.0, out.ExpectedPoints, 1e-9)
	assert.InDelta(t, 15.9, out.TotalCost, 1e-9)
	require.Len(t, out.Picks, 3)
	assert.True(t, out.Picks[0].Starter)
	assert.False(t, out.Picks[2].Starter)
	assert.Equal(t, "GK", out.Picks[2].Position)
	assert.Equal(t, "C02", out.Picks[2].TeamShort)

	out, err = buildMyTeam(ctx, cfg, MyTeamArgs{GW: nextGW - 1})
	require.NoError(t, err)
	require.Len(t, out.Picks, 1)
	assert.Equal(t, 5, out.Picks[0].PlayerID)

	_, err = buildMyTeam(ctx, cfg, MyTeamArgs{GW: 30})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBuildListPlayersAndTeams(t *testing.T) {
	cfg := tmpCfg(t)
	ctx := context.Background()

	out, err := buildListPlayers(ctx, cfg, ListPlayersArgs{Name: "p2-"})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Total)
	for _, p := range out.Players {
		assert.Equal(t, "C02", p.TeamShort)
	}

	out, err = buildListPlayers(ctx, cfg, ListPlayersArgs{Position: "gk", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, out.Total)
	require.Len(t, out.Players, 3)
	assert.Equal(t, 1, out.Players[0].ID)
	assert.False(t, out.Players[0].Selectable)

	_, err = buildListPlayers(ctx, cfg, ListPlayersArgs{Position: "keeper"})
	assert.Error(t, err)

	teams, err := buildListTeams(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, teams.Teams, 9)
	assert.Equal(t, "C01", teams.Teams[0].ShortName)
}

func TestRouterAuth(t *testing.T) {
	server, registry := newMCPServer(tmpCfg(t))
	h := newRouter(server, registry, routerOptions{MCPPath: "/mcp", APIKey: "secret", AuthHeader: "X-API-Key", Log: zerolog.Nop()})

	do := func(path string, header map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, do("/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do("/health", map[string]string{"X-API-Key": "wrong"}).Code)
	assert.Equal(t, http.StatusOK, do("/health", map[string]string{"X-API-Key": "secret"}).Code)
	assert.Equal(t, http.StatusOK, do("/health", map[string]string{"Authorization": "Bearer secret"}).Code)

	rec := do("/tools", map[string]string{"X-API-Key": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tools []toolInfo `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	names := make([]string, 0, len(body.Tools))
	for _, ti := range body.Tools {
		names = append(names, ti.Name)
	}
	assert.Equal(t, []string{"projections", "player_projection", "optimal_squad", "player_lookup", "player_history", "fixtures",
		"player_predictions", "my_team", "list_players", "list_teams"}, names)
}

func TestRouterNoKey(t *testing.T) {
	server, registry := newMCPServer(tmpCfg(t))
	h := newRouter(server, registry, routerOptions{MCPPath: "/mcp", AuthHeader: "X-API-Key", Log: zerolog.Nop()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestToolError(t *testing.T) {
	res := toolError(fmt.Errorf("element_id is required"))
	assert.True(t, res.IsError)
}
