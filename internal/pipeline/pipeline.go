// Package pipeline runs calibration, projection, squad optimisation and lineup selection over a
// frozen snapshot.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/calibrate"
	"github.com/aatrey56/fpl-squad-planner/internal/form"
	"github.com/aatrey56/fpl-squad-planner/internal/lineup"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/projection"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
)

type Config struct {
	Budget        int // tenths of a million
	Form          form.Options
	Factors       projection.Factors
	Rules         scoring.Ruleset
	SolverTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Budget:        squad.DefaultBudget,
		Form:          form.DefaultOptions(),
		Factors:       projection.DefaultFactors(),
		Rules:         scoring.Default(),
		SolverTimeout: 60 * time.Second,
	}
}

type Result struct {
	RunID       string             `json:"run_id"`
	Round       int                `json:"round"`
	Ruleset     string             `json:"ruleset"`
	Ratios      calibrate.Ratios   `json:"ratios"`
	Projections []model.Projection `json:"projections"`
	Excluded    projection.Tally   `json:"excluded"`
	Squad       model.Squad        `json:"squad"`
	Lineup      model.Lineup       `json:"lineup"`
}

type Pipeline struct {
	cfg       Config
	optimizer *squad.Optimizer
	log       zerolog.Logger
}

func New(cfg Config, optimizer *squad.Optimizer, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		optimizer: optimizer,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Rules is the scoring ruleset projections are made with.
func (p *Pipeline) Rules() scoring.Ruleset {
	return p.cfg.Rules
}

// Engine builds the projection engine for the snapshot's round.
func (p *Pipeline) Engine(snap *Snapshot) *projection.Engine {
	return &projection.Engine{
		Round:    snap.Round,
		Ratios:   calibrate.Compute(snap.Roster, snap.Records),
		Fixtures: model.FixtureIndex(snap.Fixtures),
		Form:     p.cfg.Form,
		Factors:  p.cfg.Factors,
		Rules:    p.cfg.Rules,
	}
}

// Project runs calibration and projection only.
func (p *Pipeline) Project(snap *Snapshot) (*Result, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	engine := p.Engine(snap)
	projs, tally := engine.ProjectAll(snap.Roster, snap.byPlayer)

	p.log.Info().
		Int("round", snap.Round).
		Int("players", len(snap.Roster)).
		Int("projected", len(projs)).
		Int("excluded", tally.Total()).
		Msg("projections built")
	for reason, n := range tally {
		p.log.Debug().Str("reason", string(reason)).Int("count", n).Msg("players excluded")
	}

	return &Result{
		RunID:       uuid.NewString(),
		Round:       snap.Round,
		Ruleset:     p.cfg.Rules.Name,
		Ratios:      engine.Ratios,
		Projections: projs,
		Excluded:    tally,
	}, nil
}

// Run projects, then selects squad and lineup. When optimisation fails the returned Result still
// carries the projections and err wraps squad.ErrInfeasible or squad.ErrTimeout.
func (p *Pipeline) Run(ctx context.Context, snap *Snapshot) (*Result, error) {
	res, err := p.Project(snap)
	if err != nil {
		return nil, err
	}

	solveCtx := ctx
	if p.cfg.SolverTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, p.cfg.SolverTimeout)
		defer cancel()
	}
	sq, err := p.optimizer.Optimize(solveCtx, res.Projections, p.cfg.Budget)
	if err != nil {
		p.log.Error().Err(err).Str("run_id", res.RunID).Int("round", res.Round).Msg("squad optimisation failed")
		return res, fmt.Errorf("round %d: %w", res.Round, err)
	}
	sq.Round = res.Round
	res.Squad = sq

	lu, err := lineup.Select(sq)
	if err != nil {
		return res, fmt.Errorf("round %d lineup: %w", res.Round, err)
	}
	res.Lineup = lu

	p.log.Info().
		Str("run_id", res.RunID).
		Int("round", res.Round).
		Int("captain", lu.Captain).
		Float64("expected_points", lu.ExpectedPoints).
		Msg("lineup selected")
	return res, nil
}
