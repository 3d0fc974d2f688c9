package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aatrey56/fpl-squad-planner/internal/config"
	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/fetch"
	"github.com/aatrey56/fpl-squad-planner/internal/notify"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/planner"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
	"github.com/aatrey56/fpl-squad-planner/internal/scheduler"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
	"github.com/aatrey56/fpl-squad-planner/internal/store"
	"github.com/aatrey56/fpl-squad-planner/pkg/logger"
)

const refreshTimeout = 15 * time.Minute

func main() {
	var (
		force    = flag.Bool("force", false, "bypass the raw response cache")
		live     = flag.Bool("live", false, "disable cache and disk writes for raw responses")
		schedule = flag.Bool("schedule", false, "keep running and refresh on FPL_SCHEDULE")
		replay   = flag.String("replay", "", "rerun the pipeline on a saved snapshot and print the result")
		gw       = flag.Int("gw", 0, "predict this gameweek instead of deciding from the API state")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	lg := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(lg)

	pl := pipeline.New(pipelineConfig(cfg, lg), squad.New(solver.NewBranchAndBound(lg), lg), lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *replay != "" {
		snap, err := pipeline.ReadSnapshot(*replay)
		if err != nil {
			lg.Fatal().Err(err).Msg("read snapshot")
		}
		res, err := pl.Run(ctx, snap)
		if res != nil {
			printJSON(res)
		}
		if err != nil {
			lg.Fatal().Err(err).Msg("replay")
		}
		return
	}

	db, err := database.New(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		lg.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		lg.Fatal().Err(err).Msg("migrate")
	}

	client := fetch.NewClient(store.NewJSONStore(cfg.RawDir()), lg)
	client.BaseURL = cfg.APIBase
	client.UserAgent = cfg.UserAgent
	client.Sleep = cfg.FetchSleep
	client.PrettyWrite = !*live
	client.UseCache = !*live
	client.DisableWrite = *live

	p := &planner.Planner{
		Loader:      &fetch.Loader{Client: client, Workers: cfg.FetchWorkers},
		Repo:        repository.New(db, lg),
		Pipeline:    pl,
		Notifier:    notify.NewWebhook(cfg.WebhookURL, lg),
		Dashboard:   store.NewJSONStore(filepath.Dir(cfg.DashboardPath())),
		SnapshotDir: cfg.SnapshotDir(),
		Log:         lg.With().Str("component", "planner").Logger(),
	}

	if *gw > 0 {
		res, err := p.Predict(ctx, *gw)
		if res != nil {
			printJSON(res)
		}
		if err != nil {
			lg.Fatal().Err(err).Int("gameweek", *gw).Msg("predict")
		}
		return
	}

	refresh := scheduler.JobFunc{
		JobName: "refresh",
		Fn: func(ctx context.Context) error {
			out, err := p.Refresh(ctx, *force)
			if out != nil {
				lg.Info().
					Str("action", out.Action.String()).
					Int("gameweek", out.Gameweek).
					Int("price_changes", out.PriceChanges).
					Ints("failed", out.Failed).
					Msg("refresh done")
			}
			return err
		},
	}

	sched := scheduler.New(lg, refreshTimeout)
	if !*schedule {
		if err := sched.RunNow(refresh); err != nil {
			lg.Fatal().Err(err).Msg("refresh")
		}
		return
	}

	for _, spec := range cfg.Schedules() {
		if err := sched.AddJob(spec, refresh); err != nil {
			lg.Fatal().Err(err).Str("schedule", spec).Msg("register schedule")
		}
	}
	sched.Start()
	for _, t := range sched.Next() {
		lg.Info().Time("next", t).Msg("next refresh")
	}
	<-ctx.Done()
	sched.Stop()
}

func pipelineConfig(cfg *config.Config, lg zerolog.Logger) pipeline.Config {
	pcfg := pipeline.DefaultConfig()
	pcfg.Budget = cfg.Budget
	pcfg.SolverTimeout = cfg.SolverTimeout
	if cfg.ScoringRules != "" {
		rules, err := scoring.LoadRuleset(cfg.ScoringRules)
		if err != nil {
			lg.Fatal().Err(err).Msg("load scoring rules")
		}
		pcfg.Rules = rules
	}
	return pcfg
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("write output")
	}
}
