package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/vendo-app/vendo-api/internal/types"
)

const planCacheKey = "active_plans"

// PlanCatalog serves the public plan listing from a short-lived cache and
// derives recommendation hints. The plan table changes rarely, reads are hot.
type PlanCatalog struct {
	logger  *slog.Logger
	repo    Repository
	cache   *gocache.Cache
	matcher ahocorasick.AhoCorasick
}

func NewPlanCatalog(repo Repository, ttl time.Duration, logger *slog.Logger) *PlanCatalog {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
	})
	return &PlanCatalog{
		logger:  logger,
		repo:    repo,
		cache:   gocache.New(ttl, 2*ttl),
		matcher: builder.Build([]string{"monthly", "premium"}),
	}
}

// ActivePlans returns the purchasable plans, cache first.
func (c *PlanCatalog) ActivePlans(ctx context.Context) ([]*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanCatalog").Start(ctx, "ActivePlans")
	defer span.End()

	if cached, found := c.cache.Get(planCacheKey); found {
		span.SetStatus(codes.Ok, "Plans served from cache")
		return cached.([]*types.SubscriptionPlan), nil
	}

	plans, err := c.repo.ListActivePlans(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load plans")
		return nil, fmt.Errorf("failed to load plan catalog: %w", err)
	}

	c.cache.SetDefault(planCacheKey, plans)
	c.logger.DebugContext(ctx, "Plan catalog refreshed", slog.Int("count", len(plans)))
	span.SetStatus(codes.Ok, "Plans loaded")
	return plans, nil
}

// Invalidate drops the cached listing. Called after administrative plan
// changes.
func (c *PlanCatalog) Invalidate() {
	c.cache.Delete(planCacheKey)
}

// Recommendations derives suggestion hints from the active plans. Best value
// is the paid plan with the lowest effective monthly price, and only when
// there is more than one paid plan to compare. Most popular is the first plan
// whose name carries both the monthly and premium keywords.
func (c *PlanCatalog) Recommendations(ctx context.Context) (*types.PlanRecommendations, error) {
	ctx, span := otel.Tracer("PlanCatalog").Start(ctx, "Recommendations")
	defer span.End()

	plans, err := c.ActivePlans(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rec := &types.PlanRecommendations{}

	var paid []*types.SubscriptionPlan
	for _, p := range plans {
		if p.IsFree() {
			if rec.Free == nil {
				u := p.UUID
				rec.Free = &u
			}
			continue
		}
		paid = append(paid, p)
		if rec.MostPopular == nil && c.mentionsMonthlyPremium(p.Name) {
			u := p.UUID
			rec.MostPopular = &u
		}
	}

	if len(paid) > 1 {
		best := paid[0]
		for _, p := range paid[1:] {
			if p.MonthlyPrice().LessThan(best.MonthlyPrice()) {
				best = p
			}
		}
		u := best.UUID
		rec.BestValue = &u
	}

	span.SetStatus(codes.Ok, "Recommendations derived")
	return rec, nil
}

func (c *PlanCatalog) mentionsMonthlyPremium(name string) bool {
	name = strings.ToLower(name)
	var sawMonthly, sawPremium bool
	for _, m := range c.matcher.FindAll(name) {
		switch name[m.Start():m.End()] {
		case "monthly":
			sawMonthly = true
		case "premium":
			sawPremium = true
		}
	}
	return sawMonthly && sawPremium
}
