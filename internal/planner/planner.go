// Package planner runs one refresh: fetch, persist, then either predict the next gameweek or score
// the live one.
package planner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/dashboard"
	"github.com/aatrey56/fpl-squad-planner/internal/fetch"
	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/notify"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
	"github.com/aatrey56/fpl-squad-planner/internal/store"
)

type Planner struct {
	Loader      *fetch.Loader
	Repo        *repository.Repository
	Pipeline    *pipeline.Pipeline
	Notifier    *notify.Webhook
	Dashboard   *store.JSONStore
	SnapshotDir string // empty disables snapshot files
	Log         zerolog.Logger
	Now         func() time.Time
}

// Outcome summarises one refresh.
type Outcome struct {
	Action       dashboard.Action
	Gameweek     int
	PriceChanges int
	Failed       []int
	Result       *pipeline.Result
	LivePoints   int
}

// Refresh fetches the API, stores it and updates the dashboard. force bypasses the raw cache.
func (p *Planner) Refresh(ctx context.Context, force bool) (*Outcome, error) {
	ds, err := p.Loader.Load(ctx, force)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	out := &Outcome{Failed: ds.Failed}

	changes, err := p.persist(ctx, ds)
	if err != nil {
		return nil, err
	}
	out.PriceChanges = len(changes)
	if len(changes) > 0 {
		names := make(map[int]string, len(ds.Bootstrap.Teams))
		for _, t := range ds.Bootstrap.Teams {
			names[t.ID] = t.Name
		}
		if err := p.Notifier.PriceChanges(ctx, changes, names); err != nil {
			p.Log.Warn().Err(err).Msg("price change notification failed")
		}
	}

	saved, err := dashboard.Load(p.Dashboard)
	if err != nil {
		return nil, err
	}
	action, gw := dashboard.Decide(roundState(ds), saved)
	out.Action, out.Gameweek = action, gw
	p.Log.Info().Str("action", action.String()).Int("gameweek", gw).Msg("dashboard decision")

	switch action {
	case dashboard.Live:
		pts, err := p.live(ctx, saved, gw)
		if err != nil {
			return out, err
		}
		out.LivePoints = pts
	case dashboard.Predict:
		res, err := p.Predict(ctx, gw)
		out.Result = res
		if err != nil {
			return out, err
		}
		doc := dashboard.Build(res.Lineup, teamIndex(ds.Bootstrap.Teams), p.Pipeline.Rules(), p.now())
		if err := dashboard.Save(p.Dashboard, doc); err != nil {
			return out, err
		}
		if err := p.Notifier.Lineup(ctx, res.Lineup); err != nil {
			p.Log.Warn().Err(err).Msg("lineup notification failed")
		}
	}
	return out, nil
}

func (p *Planner) persist(ctx context.Context, ds *fetch.Dataset) ([]repository.PriceChange, error) {
	if err := p.Repo.SaveTeams(ctx, ds.Bootstrap.Teams); err != nil {
		return nil, fmt.Errorf("save teams: %w", err)
	}
	changes, err := p.Repo.SavePlayers(ctx, ds.Bootstrap.Players)
	if err != nil {
		return nil, fmt.Errorf("save players: %w", err)
	}
	if err := p.Repo.SaveHistory(ctx, ds.History); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	if err := p.Repo.SaveFixtures(ctx, ds.Fixtures); err != nil {
		return nil, fmt.Errorf("save fixtures: %w", err)
	}
	return changes, nil
}

// Predict snapshots the repository for gw, runs the pipeline and stores its output. Predictions
// are stored even when no squad can be selected.
func (p *Planner) Predict(ctx context.Context, gw int) (*pipeline.Result, error) {
	snap, err := pipeline.Build(ctx, p.Repo, gw)
	if err != nil {
		return nil, err
	}
	if p.SnapshotDir != "" {
		path := filepath.Join(p.SnapshotDir, fmt.Sprintf("gw%d.msgpack", gw))
		if err := snap.WriteFile(path); err != nil {
			p.Log.Warn().Err(err).Str("path", path).Msg("snapshot not written")
		}
	}

	res, runErr := p.Pipeline.Run(ctx, snap)
	if res == nil {
		return nil, runErr
	}
	if err := p.Repo.SavePredictions(ctx, res.RunID, res.Projections); err != nil {
		return res, errors.Join(runErr, fmt.Errorf("save predictions: %w", err))
	}
	if runErr != nil {
		return res, runErr
	}
	if err := p.Repo.SaveLineup(ctx, res.RunID, res.Lineup); err != nil {
		return res, fmt.Errorf("save lineup: %w", err)
	}
	return res, nil
}

func (p *Planner) live(ctx context.Context, doc *dashboard.Document, gw int) (int, error) {
	raw, err := p.Loader.Client.EventLive(ctx, gw, true)
	if err != nil {
		return 0, err
	}
	live, err := fetch.DecodeLive(raw)
	if err != nil {
		return 0, err
	}
	res := doc.ApplyLive(live, p.now())
	if err := dashboard.Save(p.Dashboard, doc); err != nil {
		return 0, err
	}
	p.Log.Info().Int("gameweek", gw).Int("live_points", res.TotalPoints).
		Float64("predicted", res.Predicted).Msg("live points updated")
	return res.TotalPoints, nil
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func roundState(ds *fetch.Dataset) dashboard.Round {
	cur, finished := ds.Bootstrap.Current()
	return dashboard.Round{Current: cur, CurrentFinished: finished, Next: ds.Round()}
}

func teamIndex(teams []model.Team) map[int]model.Team {
	out := make(map[int]model.Team, len(teams))
	for _, t := range teams {
		out[t.ID] = t
	}
	return out
}
