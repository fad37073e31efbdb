package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/reprank/internal/catalog"
	"github.com/claude/reprank/internal/scoring"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, cfg *scoring.Config, cat *catalog.Catalog, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepRank", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepRank strength rank server. Query per-muscle strength ranks, the tier table and 1RM estimates. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, cfg: cfg, cat: cat, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetStrengthRanks, Handler: h.getStrengthRanks},
		server.ServerTool{Tool: toolGetMuscleRank, Handler: h.getMuscleRank},
		server.ServerTool{Tool: toolEstimateOneRepMax, Handler: h.estimateOneRepMax},
		server.ServerTool{Tool: toolGetRankTiers, Handler: h.getRankTiers},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRankTiers, Handler: h.rankTiers},
		server.ServerResource{Resource: resCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// HTTPHandler serves s over streamable HTTP. userID resolves the caller of
// each request, typically from identity middleware.
func HTTPHandler(s *server.MCPServer, userID func(*http.Request) int) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithUserID(ctx, userID(r))
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	cfg *scoring.Config
	cat *catalog.Catalog
	log *slog.Logger
}

// --- Resource definitions ---

var resRankTiers = mcp.NewResource(
	"reprank://rank_tiers",
	"Rank Tiers",
	mcp.WithResourceDescription("Score bands of every rank tier from Bronze to Mythic"),
	mcp.WithMIMEType("application/json"),
)

var resCatalog = mcp.NewResource(
	"reprank://catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Muscle groups and the exercises that train them, with contribution percentages"),
	mcp.WithMIMEType("application/json"),
)
