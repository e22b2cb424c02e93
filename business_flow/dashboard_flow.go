package businessflow

import (
	"context"
	"sort"

	"github.com/kimmokhwa/beautiful-management-app/app/dto"
	"github.com/kimmokhwa/beautiful-management-app/models"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardFlow computes read-only aggregates over the whole procedure catalogue
type DashboardFlow interface {
	Stats(ctx context.Context, metadata *ClientMetadata) (*dto.DashboardStatsDTO, error)
	TopMargin(ctx context.Context, metadata *ClientMetadata) ([]dto.TopProcedureDTO, error)
	TopMarginRate(ctx context.Context, metadata *ClientMetadata) ([]dto.TopProcedureDTO, error)
	Recommended(ctx context.Context, metadata *ClientMetadata) ([]dto.ProcedureDTO, error)
	CategoryStats(ctx context.Context, metadata *ClientMetadata) ([]dto.CategoryStatDTO, error)
}

type DashboardFlowImpl struct {
	procedureRepo repository.ProcedureRepository
	materialRepo  repository.MaterialRepository
	categoryRepo  repository.CategoryRepository
	costReader    repository.ProcedureCostReader
	cache         *DashboardCache
	logger        *zap.Logger
}

func NewDashboardFlow(
	procedureRepo repository.ProcedureRepository,
	materialRepo repository.MaterialRepository,
	categoryRepo repository.CategoryRepository,
	costReader repository.ProcedureCostReader,
	cache *DashboardCache,
	logger *zap.Logger,
) DashboardFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardFlowImpl{
		procedureRepo: procedureRepo,
		materialRepo:  materialRepo,
		categoryRepo:  categoryRepo,
		costReader:    costReader,
		cache:         cache,
		logger:        logger,
	}
}

func (f *DashboardFlowImpl) Stats(ctx context.Context, metadata *ClientMetadata) (*dto.DashboardStatsDTO, error) {
	var cached dto.DashboardStatsDTO
	gen, ok := f.cache.get(ctx, dashboardKeyStats, &cached)
	if ok {
		return &cached, nil
	}

	var (
		totalProcedures int64
		recommended     int64
		totalMaterials  int64
		totalCategories int64
		rows            []*repository.ProcedureCostRow
	)
	recommendedOnly := true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalProcedures, err = f.procedureRepo.Count(gctx, models.ProcedureFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		recommended, err = f.procedureRepo.Count(gctx, models.ProcedureFilter{IsRecommended: &recommendedOnly})
		return err
	})
	g.Go(func() error {
		var err error
		totalMaterials, err = f.materialRepo.Count(gctx, models.MaterialFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		totalCategories, err = f.categoryRepo.Count(gctx, models.CategoryFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = f.costReader.List(gctx, repository.ProcedureCostQuery{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, NewBusinessError("DASHBOARD_STATS_FAILED", "Failed to load dashboard statistics", err)
	}

	stats := dto.DashboardStatsDTO{
		TotalProcedures:  totalProcedures,
		RecommendedCount: recommended,
		TotalMaterials:   totalMaterials,
		TotalCategories:  totalCategories,
	}

	views := newProcedureViews(rows)
	if len(views) > 0 {
		n := decimal.NewFromInt(int64(len(views)))
		rateSum := decimal.Zero
		priceSum := decimal.Zero
		maxMargin := views[0].result.Margin
		for _, v := range views {
			rateSum = rateSum.Add(v.result.MarginRate)
			priceSum = priceSum.Add(v.row.CustomerPrice)
			if v.result.Margin.GreaterThan(maxMargin) {
				maxMargin = v.result.Margin
			}
		}
		stats.AvgMarginRate = rateSum.Div(n).Round(1).InexactFloat64()
		stats.AvgPrice = priceSum.Div(n).Round(0).InexactFloat64()
		stats.MaxMargin = moneyFloat(maxMargin)
	}

	f.cache.set(ctx, gen, dashboardKeyStats, stats)
	return &stats, nil
}

func (f *DashboardFlowImpl) TopMargin(ctx context.Context, metadata *ClientMetadata) ([]dto.TopProcedureDTO, error) {
	return f.top(ctx, dashboardKeyTopMargin, SortByMargin)
}

func (f *DashboardFlowImpl) TopMarginRate(ctx context.Context, metadata *ClientMetadata) ([]dto.TopProcedureDTO, error) {
	return f.top(ctx, dashboardKeyTopMarginRate, SortByMarginRate)
}

func (f *DashboardFlowImpl) top(ctx context.Context, key, field string) ([]dto.TopProcedureDTO, error) {
	var cached []dto.TopProcedureDTO
	gen, ok := f.cache.get(ctx, key, &cached)
	if ok {
		return cached, nil
	}

	rows, err := f.costReader.List(ctx, repository.ProcedureCostQuery{})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_TOP_FAILED", "Failed to load top procedures", err)
	}

	result := topViews(newProcedureViews(rows), field, utils.TopProceduresLimit)
	f.cache.set(ctx, gen, key, result)
	return result, nil
}

func (f *DashboardFlowImpl) Recommended(ctx context.Context, metadata *ClientMetadata) ([]dto.ProcedureDTO, error) {
	var cached []dto.ProcedureDTO
	gen, ok := f.cache.get(ctx, dashboardKeyRecommended, &cached)
	if ok {
		return cached, nil
	}

	rows, err := f.costReader.List(ctx, repository.ProcedureCostQuery{RecommendedOnly: true})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_RECOMMENDED_FAILED", "Failed to load recommended procedures", err)
	}

	views := newProcedureViews(rows)
	sortViews(views, SortByMarginRate, true)

	result := make([]dto.ProcedureDTO, 0, len(views))
	for _, v := range views {
		result = append(result, v.toDTO())
	}
	f.cache.set(ctx, gen, dashboardKeyRecommended, result)
	return result, nil
}

type categoryAccumulator struct {
	id          *uint
	name        string
	count       int
	rateSum     decimal.Decimal
	marginTotal decimal.Decimal
}

func (a *categoryAccumulator) add(v procedureView) {
	a.count++
	a.rateSum = a.rateSum.Add(v.result.MarginRate)
	a.marginTotal = a.marginTotal.Add(v.result.Margin)
}

func (a *categoryAccumulator) toDTO() dto.CategoryStatDTO {
	avg := decimal.Zero
	if a.count > 0 {
		avg = a.rateSum.Div(decimal.NewFromInt(int64(a.count))).Round(1)
	}
	return dto.CategoryStatDTO{
		ID:             a.id,
		Name:           a.name,
		ProcedureCount: a.count,
		AvgMarginRate:  avg.InexactFloat64(),
		TotalMargin:    moneyFloat(a.marginTotal.Round(0)),
	}
}

// CategoryStats returns one entry per category, sorted by name, plus a trailing
// entry for uncategorized procedures when any exist.
func (f *DashboardFlowImpl) CategoryStats(ctx context.Context, metadata *ClientMetadata) ([]dto.CategoryStatDTO, error) {
	var cached []dto.CategoryStatDTO
	gen, ok := f.cache.get(ctx, dashboardKeyCategories, &cached)
	if ok {
		return cached, nil
	}

	var (
		categories []*models.Category
		rows       []*repository.ProcedureCostRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = f.categoryRepo.ByFilter(gctx, models.CategoryFilter{}, "name ASC, id ASC", 0, 0)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = f.costReader.List(gctx, repository.ProcedureCostQuery{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, NewBusinessError("DASHBOARD_CATEGORIES_FAILED", "Failed to load category statistics", err)
	}

	byID := make(map[uint]*categoryAccumulator, len(categories))
	ordered := make([]*categoryAccumulator, 0, len(categories)+1)
	for _, c := range categories {
		id := c.ID
		acc := &categoryAccumulator{id: &id, name: c.Name}
		byID[c.ID] = acc
		ordered = append(ordered, acc)
	}
	uncategorized := &categoryAccumulator{name: models.UncategorizedName}

	for _, v := range newProcedureViews(rows) {
		if v.row.CategoryID != nil {
			if acc, ok := byID[*v.row.CategoryID]; ok {
				acc.add(v)
				continue
			}
		}
		uncategorized.add(v)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].name != ordered[j].name {
			return ordered[i].name < ordered[j].name
		}
		return *ordered[i].id < *ordered[j].id
	})

	result := make([]dto.CategoryStatDTO, 0, len(ordered)+1)
	for _, acc := range ordered {
		result = append(result, acc.toDTO())
	}
	if uncategorized.count > 0 {
		result = append(result, uncategorized.toDTO())
	}

	f.cache.set(ctx, gen, dashboardKeyCategories, result)
	return result, nil
}
