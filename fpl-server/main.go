package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aatrey56/fpl-squad-planner/internal/config"
	"github.com/aatrey56/fpl-squad-planner/internal/database"
	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
	"github.com/aatrey56/fpl-squad-planner/internal/scoring"
	"github.com/aatrey56/fpl-squad-planner/internal/solver"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
	"github.com/aatrey56/fpl-squad-planner/pkg/logger"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		mcpPath     = flag.String("path", "/mcp", "HTTP path for MCP endpoint")
		requireAuth = flag.Bool("require-auth", true, "require API key auth via FPL_MCP_API_KEY")
		authHeader  = flag.String("auth-header", "X-API-Key", "HTTP header to read API key from")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	lg := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(lg)

	apiKey := strings.TrimSpace(cfg.MCPAPIKey)
	if *requireAuth && apiKey == "" {
		lg.Fatal().Msg("FPL_MCP_API_KEY is required (set env var or run with --require-auth=false)")
	}

	db, err := database.New(database.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		lg.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Migrate(context.Background()); err != nil {
		lg.Fatal().Err(err).Msg("migrate")
	}

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

	sc := ServerConfig{
		Repo:      repository.New(db, lg),
		Pipeline:  pcfg,
		Optimizer: squad.New(solver.NewBranchAndBound(lg), lg),
		Log:       lg,
	}
	server, registry := newMCPServer(sc)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(server, registry, routerOptions{MCPPath: *mcpPath, APIKey: apiKey, AuthHeader: *authHeader, Log: lg}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		lg.Info().Str("addr", *addr).Str("path", *mcpPath).Msg("MCP HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("shutdown")
	}
}
