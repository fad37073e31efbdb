package mcp

import (
	"context"
	"time"

	"github.com/claude/reprank/internal/ranking"
	"github.com/claude/reprank/internal/scoring"
)

// DataSource abstracts rank evaluation for MCP tools. Both *ranking.Service
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Evaluate(ctx context.Context, userID int, asOf time.Time) (*scoring.Result, error)
}

// Compile-time check: *ranking.Service satisfies DataSource.
var _ DataSource = (*ranking.Service)(nil)
