package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
)

// Dataset is one full refresh of the API.
type Dataset struct {
	Bootstrap *Bootstrap
	Fixtures  []model.Fixture
	History   []model.GameRecord
	// Failed lists players whose history could not be fetched. They keep whatever history the
	// repository already holds.
	Failed []int
}

// Round is the round to plan for: the next event, else the earliest unfinished fixture.
func (d *Dataset) Round() int {
	if r := d.Bootstrap.NextRound(); r > 0 {
		return r
	}
	return model.NextRound(d.Fixtures)
}

type Loader struct {
	Client  *Client
	Workers int
}

// Load fetches bootstrap and fixtures, then every player's history with at most Workers requests
// in flight. Per-player failures are logged and collected; cancellation aborts the load.
func (l *Loader) Load(ctx context.Context, force bool) (*Dataset, error) {
	raw, err := l.Client.BootstrapStatic(ctx, force)
	if err != nil {
		return nil, err
	}
	boot, err := DecodeBootstrap(raw)
	if err != nil {
		return nil, err
	}
	if len(boot.UnknownStatus) > 0 {
		l.Client.Log.Warn().Ints("elements", boot.UnknownStatus).Msg("unknown status codes, players left out")
	}
	raw, err = l.Client.FutureFixtures(ctx, force)
	if err != nil {
		return nil, err
	}
	fixtures, err := DecodeFixtures(raw)
	if err != nil {
		return nil, err
	}

	workers := l.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		history []model.GameRecord
		failed  []int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range boot.Players {
		id := p.ID
		g.Go(func() error {
			b, err := l.Client.ElementSummary(gctx, id, force)
			var recs []model.GameRecord
			if err == nil {
				recs, err = DecodeElementSummary(id, b)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.Client.Log.Warn().Err(err).Int("player_id", id).Msg("history fetch failed")
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			history = append(history, recs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	sort.Ints(failed)
	sort.Slice(history, func(i, j int) bool {
		a, b := history[i], history[j]
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.FixtureID < b.FixtureID
	})

	l.Client.Log.Info().
		Int("players", len(boot.Players)).
		Int("records", len(history)).
		Int("fixtures", len(fixtures)).
		Int("failed", len(failed)).
		Msg("refresh complete")

	return &Dataset{Bootstrap: boot, Fixtures: fixtures, History: history, Failed: failed}, nil
}
