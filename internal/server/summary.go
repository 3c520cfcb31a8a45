package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/nhle/advisor-tasks/internal/aggregate"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/remote"
)

// Summarizer serves the count views of one tenant from its view cache.
type Summarizer interface {
	Tenant() string
	Counts(ctx context.Context) aggregate.Snapshot
	TaskTypes(ctx context.Context) (*remote.TypeBreakdown, error)
}

// SummarySection is one count dimension of a summary. A failed section
// carries its error and its last-known-good items.
type SummarySection struct {
	Items []model.Aggregate `json:"items"`
	Stale bool              `json:"stale,omitempty"`
	Error string            `json:"error,omitempty"`
}

// Summary is the cached count view of a tenant's default filter.
type Summary struct {
	Status      SummarySection        `json:"status"`
	Categories  SummarySection        `json:"categories"`
	Managers    SummarySection        `json:"managers"`
	ByType      *remote.TypeBreakdown `json:"byType,omitempty"`
	ByTypeError string                `json:"byTypeError,omitempty"`
}

// WithSummary serves GET .../summary from sum. The views it reads are the
// ones kept warm by the refresh poller.
func WithSummary(sum Summarizer) Option {
	return func(s *Server) { s.summary = sum }
}

func (s *Server) handleSummary(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant != s.summary.Tenant() {
		s.respond(c, nil, fmt.Errorf("summary of %s: %w", tenant, remote.ErrNotFound))
		return
	}

	ctx := c.Request.Context()
	snap := s.summary.Counts(ctx)
	out := Summary{
		Status:     section(snap.Status),
		Categories: section(snap.Categories),
		Managers:   section(snap.Managers),
	}
	byType, err := s.summary.TaskTypes(ctx)
	out.ByType = byType
	if err != nil {
		out.ByTypeError = err.Error()
	}
	s.respond(c, out, nil)
}

func section(sec aggregate.Section) SummarySection {
	out := SummarySection{Items: sec.Items, Stale: sec.Stale}
	if out.Items == nil {
		out.Items = []model.Aggregate{}
	}
	if sec.Err != nil {
		out.Error = sec.Err.Error()
	}
	return out
}
