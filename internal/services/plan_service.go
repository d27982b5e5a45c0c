package services

import (
	"context"
	"fmt"
	"time"

	"cashplan/internal/cashflow"
	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/projection"
	"cashplan/internal/store"
	"cashplan/internal/variance"

	"golang.org/x/sync/errgroup"
)

// PlanConfig holds configuration for the plan service
type PlanConfig struct {
	// CacheSize is the number of memoized projections kept (default: 64)
	CacheSize int

	// CacheTTL is how long a memoized projection stays valid (default: 10m)
	CacheTTL time.Duration
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		CacheSize: 64,
		CacheTTL:  10 * time.Minute,
	}
}

// PlanService runs the engines over a workspace's stored state.
type PlanService struct {
	store  store.Store
	memo   *projection.Memoizer
	logger *log.Logger
}

func NewPlanService(st store.Store, config PlanConfig, logger *log.Logger) *PlanService {
	def := DefaultPlanConfig()
	if config.CacheSize <= 0 {
		config.CacheSize = def.CacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = def.CacheTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &PlanService{
		store:  st,
		memo:   projection.NewMemoizer(config.CacheSize, config.CacheTTL),
		logger: logger.WithComponent(log.ComponentPlan),
	}
}

// Report is the full planning picture for one workspace. Exactly one of
// Cashflow and Envelope is set, depending on the workspace mode.
type Report struct {
	Workspace  core.Workspace           `json:"workspace"`
	Horizon    projection.Horizon       `json:"horizon"`
	Projection projection.Result        `json:"projection"`
	Variance   variance.Result          `json:"variance"`
	Cashflow   *cashflow.Result         `json:"cashflow,omitempty"`
	Envelope   *cashflow.EnvelopeResult `json:"envelope,omitempty"`
	CacheHit   bool                     `json:"-"`
}

// Report loads the workspace and projects it over its horizon. Actuals
// outside the horizon are ignored.
func (s *PlanService) Report(ctx context.Context, workspaceID string, now time.Time) (Report, error) {
	var (
		ws      core.Workspace
		items   []core.LineItem
		actuals []core.Actual
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ws, err = s.store.GetWorkspace(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.store.ListLineItems(gctx, workspaceID)
		return err
	})
	g.Go(func() error {
		var err error
		actuals, err = s.store.ListActuals(gctx, workspaceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("load workspace %s: %w", workspaceID, err)
	}

	start := time.Now()
	horizon := projection.ResolveHorizon(ws.PeriodType, ws.StartDate, ws.EndDate, now)
	proj, hit := s.memo.Expand(items, horizon.Start, horizon.End)

	inHorizon := make([]core.Actual, 0, len(actuals))
	for _, a := range actuals {
		if horizon.Contains(a.Date) {
			inHorizon = append(inHorizon, a)
		}
	}

	rep := Report{
		Workspace:  ws,
		Horizon:    horizon,
		Projection: proj,
		Variance:   variance.Compare(proj, inHorizon, items),
		CacheHit:   hit,
	}
	switch ws.Mode {
	case core.ModeEnvelope:
		env := cashflow.ProjectEnvelope(ws.TotalBudget, proj, inHorizon, now)
		rep.Envelope = &env
	default:
		cf := cashflow.Project(ws.StartingBalance, proj, inHorizon, items)
		rep.Cashflow = &cf
	}

	s.logger.DebugContext(ctx, "Report computed",
		log.FieldOperation, log.OpReport,
		log.FieldWorkspaceID, workspaceID,
		log.FieldMonths, len(proj.Slots),
		log.FieldCacheHit, hit,
		log.FieldDuration, time.Since(start).Milliseconds())
	return rep, nil
}
