package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/pipeline"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
	"github.com/aatrey56/fpl-squad-planner/internal/squad"
)

type ServerConfig struct {
	Repo      *repository.Repository
	Pipeline  pipeline.Config
	Optimizer *squad.Optimizer
	Log       zerolog.Logger
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func newMCPServer(cfg ServerConfig) (*mcp.Server, []toolInfo) {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fpl-squad-planner",
			Version: "0.1.0",
		},
		nil,
	)

	registry := make([]toolInfo, 0, 10)

	addTool(server, &registry, &mcp.Tool{
		Name:        "projections",
		Description: "Expected points for every selectable player in a gameweek, best first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ProjectionsArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildProjections(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "player_projection",
		Description: "One player's projected stats and per-term points breakdown, or why they were excluded",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerProjectionArgs) (*mcp.CallToolResult, any, error) {
		if args.ElementID == 0 {
			return toolError(fmt.Errorf("element_id is required")), nil, nil
		}
		out, err := buildPlayerProjection(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "optimal_squad",
		Description: "Best 15-player squad under the budget with starting eleven, bench order and captaincy",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args OptimalSquadArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildOptimalSquad(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "player_lookup",
		Description: "Lookup a player by element id",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerLookupArgs) (*mcp.CallToolResult, any, error) {
		if args.ElementID == 0 {
			return toolError(fmt.Errorf("element_id is required")), nil, nil
		}
		out, err := lookupPlayer(ctx, cfg, args.ElementID)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "player_history",
		Description: "A player's per-fixture stat lines, most recent last",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerHistoryArgs) (*mcp.CallToolResult, any, error) {
		if args.ElementID == 0 {
			return toolError(fmt.Errorf("element_id is required")), nil, nil
		}
		out, err := buildPlayerHistory(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "fixtures",
		Description: "Fixtures of a gameweek with each side's difficulty, easiest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FixturesArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildFixtureDifficulty(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "player_predictions",
		Description: "Stored expected points from the last planner run for a gameweek, best first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerPredictionsArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildPlayerPredictions(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "my_team",
		Description: "The stored lineup of a gameweek (0 = latest) with captaincy and expected total",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args MyTeamArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildMyTeam(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "list_players",
		Description: "Players filtered by name fragment and position",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListPlayersArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildListPlayers(ctx, cfg, args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "list_teams",
		Description: "Every club with its id and short name",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListTeamsArgs) (*mcp.CallToolResult, any, error) {
		out, err := buildListTeams(ctx, cfg)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolValue(out)
	})

	return server, registry
}

type routerOptions struct {
	MCPPath    string
	APIKey     string
	AuthHeader string
	Log        zerolog.Logger
}

func newRouter(server *mcp.Server, registry []toolInfo, opts routerOptions) http.Handler {
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", opts.AuthHeader, "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(withAuth(opts.APIKey, opts.AuthHeader))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		r.Get("/tools", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			b, _ := json.MarshalIndent(map[string]any{"tools": registry}, "", "  ")
			w.Write(b)
		})

		r.Handle(opts.MCPPath, handler)
	})
	return r
}

// withAuth accepts the key in authHeader or as a bearer token. An empty key disables the check.
func withAuth(apiKey, authHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := strings.TrimSpace(r.Header.Get(authHeader))
			if key == "" {
				if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					key = strings.TrimSpace(authz[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func addTool[T any](server *mcp.Server, registry *[]toolInfo, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	*registry = append(*registry, toolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, handler)
}

func toolValue(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	return toolJSON(b, err)
}

func toolJSON(res []byte, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSONBytes(res), nil, nil
}

func toolJSONBytes(res []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
