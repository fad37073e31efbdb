package mcp

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/reprank/internal/scoring"
)

// parseAsOf reads an optional as_of argument. A bare date means the end of
// that day; empty means now.
func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := parseFlexTime(s)
	if err != nil {
		return time.Time{}, err
	}
	if len(s) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetStrengthRanks = mcp.NewTool("get_strength_ranks",
	mcp.WithDescription("Evaluate strength ranks for every muscle group plus the overall rank. Each muscle includes strength, volume and composite scores, the evidence ceiling, the tier and progress to the next tier, and the exercises that contributed."),
	mcp.WithString("as_of", mcp.Description("Evaluate as of this instant (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetMuscleRank = mcp.NewTool("get_muscle_rank",
	mcp.WithDescription("Evaluate the rank of a single muscle group with its contributing exercises."),
	mcp.WithString("muscle", mcp.Required(), mcp.Description("Muscle group id (e.g. chest, lats, quads). See reprank://catalog.")),
	mcp.WithString("as_of", mcp.Description("Evaluate as of this instant (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolEstimateOneRepMax = mcp.NewTool("estimate_one_rep_max",
	mcp.WithDescription("Estimate a one-rep max from a weight lifted for a number of reps, using the configured formula."),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight lifted")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions completed (whole number, at least 1)")),
)

var toolGetRankTiers = mcp.NewTool("get_rank_tiers",
	mcp.WithDescription("List the rank tiers and their score bands, lowest first."),
)

// --- Tool handlers ---

func (h *handlers) getStrengthRanks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	asOf, err := parseAsOf(req.GetString("as_of", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid as_of: " + err.Error()), nil
	}

	res, err := h.ds.Evaluate(ctx, UserIDFromContext(ctx), asOf)
	if err != nil {
		h.log.Error("mcp get_strength_ranks", "error", err)
		return mcp.NewToolResultError("evaluation failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getMuscleRank(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	muscle, err := req.RequireString("muscle")
	if err != nil {
		return mcp.NewToolResultError("muscle parameter is required"), nil
	}
	if _, ok := h.cat.MuscleGroup(muscle); !ok {
		return mcp.NewToolResultError("unknown muscle group: " + muscle), nil
	}

	asOf, err := parseAsOf(req.GetString("as_of", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid as_of: " + err.Error()), nil
	}

	res, err := h.ds.Evaluate(ctx, UserIDFromContext(ctx), asOf)
	if err != nil {
		h.log.Error("mcp get_muscle_rank", "error", err)
		return mcp.NewToolResultError("evaluation failed: " + err.Error()), nil
	}
	m, _ := res.Muscle(muscle)

	result, err := mcp.NewToolResultJSON(m)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) estimateOneRepMax(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	reps, err := req.RequireFloat("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	if reps != math.Trunc(reps) {
		return mcp.NewToolResultError("reps must be a whole number"), nil
	}

	e1rm, err := scoring.EstimateOneRepMax(h.cfg, weight, int(reps))
	if errors.Is(err, scoring.ErrInvalidInput) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"weight":        weight,
		"reps":          int(reps),
		"estimated_1rm": e1rm,
		"formula":       h.cfg.OneRepMax.Formula,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRankTiers(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.cfg.TierTable())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
