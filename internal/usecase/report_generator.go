package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"SellingView/internal/domain/models"
	drepo "SellingView/internal/domain/repository"
	"SellingView/internal/services/analytics"
	"SellingView/pkg/logger"
)

// GenerateParams carries one report run's inputs.
type GenerateParams struct {
	AccountID  string
	Start      time.Time
	End        time.Time
	Resolution drepo.Resolution
	WindowDays int
	WarmupDays int
}

// ReportGenerator runs the full analysis pipeline for one account: order
// retrieval, lump-sum distribution, series building, indicators,
// consolidation, scoring and report assembly. The pipeline itself is
// stateless; a single generator can serve concurrent requests.
type ReportGenerator struct {
	source      drepo.OrderSource
	publisher   drepo.ReportPublisher
	metrics     drepo.Metrics
	log         *logger.Logger
	distributor *analytics.Distributor
	ignoreTerms []string
	maLength    int
	now         func() time.Time
}

func NewReportGenerator(
	source drepo.OrderSource,
	publisher drepo.ReportPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
	lumpPrefix string,
	ignoreTerms []string,
	maLength int,
) *ReportGenerator {
	return &ReportGenerator{
		source:      source,
		publisher:   publisher,
		metrics:     metrics,
		log:         log,
		distributor: analytics.NewDistributor(lumpPrefix),
		ignoreTerms: ignoreTerms,
		maLength:    maLength,
		now:         time.Now,
	}
}

// Generate produces the full report for one account. Upstream data failures
// abort the run; per-product failures are logged and skipped so one broken
// product cannot sink the whole report.
func (g *ReportGenerator) Generate(ctx context.Context, params GenerateParams) (*models.Report, error) {
	start := time.Now()
	periodDays := params.Resolution.Days()
	if periodDays <= 0 {
		return nil, fmt.Errorf("invalid resolution %q", params.Resolution)
	}

	account, err := g.source.AccountInfo(ctx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account info: %w", err)
	}

	// Data collection begins one warmup window before the analysis start so
	// the earliest analyzed trend values are backed by full history.
	dataStart := params.Start.AddDate(0, 0, -params.WarmupDays)
	orders, err := g.source.ListOrders(ctx, params.AccountID, dataStart, params.End)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	g.log.Info("retrieved orders",
		logger.String("account_id", params.AccountID),
		logger.Int("orders", len(orders)))

	orders = g.distributor.Distribute(orders)

	builder := analytics.NewSeriesBuilder(params.WindowDays, periodDays)
	engine := analytics.NewIndicatorEngine(g.maLength, periodDays)

	accountCandles := analytics.CandlesFrom(builder.Build(orders, 0), params.Start)
	accountSet := engine.Annotate(accountCandles)

	products, err := g.source.ListProducts(ctx, params.AccountID, dataStart, params.End)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	analyses, productCandles := g.analyzeProducts(ctx, orders, products, builder, engine, params.Start)

	// The shared grid is anchored at the analysis start date, not at the
	// first account candle, so every run of the same range uses the same
	// grid regardless of where the account's orders begin.
	consolidator := analytics.NewConsolidator(periodDays)
	contributions := consolidator.Consolidate(productCandles, consolidator.Grid(params.Start, params.End))

	now := g.now()
	scorer := analytics.NewScorer(params.WindowDays, g.ignoreTerms)
	opportunities := scorer.Score(analyses, contributions, products, now)

	assembler := analytics.NewAssembler(g.log)
	report := assembler.Assemble(account, accountCandles, accountSet, opportunities, now)
	report.AccountCandles = accountCandles
	report.ProductCandles = productCandles

	if g.publisher != nil {
		if err := g.publisher.PublishReport(ctx, report); err != nil {
			g.metrics.RecordError("report_publish")
			g.log.Error("publish report", logger.String("account_id", params.AccountID), logger.Error(err))
		}
	}

	g.metrics.RecordReportGenerated(params.AccountID)
	g.metrics.RecordOpportunities(params.AccountID, len(opportunities))
	g.metrics.RecordLatency("report_generate", time.Since(start).Seconds())
	return report, nil
}

// CandlesParams carries one candle-series request.
type CandlesParams struct {
	AccountID  string
	ProductID  string // empty means the account-level series
	Start      time.Time
	End        time.Time
	Resolution drepo.Resolution
	WindowDays int
}

// Candles produces just the candle series for one account or one of its
// products, for chart consumers that do not need a full report.
func (g *ReportGenerator) Candles(ctx context.Context, params CandlesParams) ([]models.Candle, error) {
	periodDays := params.Resolution.Days()
	if periodDays <= 0 {
		return nil, fmt.Errorf("invalid resolution %q", params.Resolution)
	}

	dataStart := params.Start.AddDate(0, 0, -params.WindowDays)
	orders, err := g.source.ListOrders(ctx, params.AccountID, dataStart, params.End)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders = g.distributor.Distribute(orders)

	var refPrice float64
	if params.ProductID != "" {
		filtered := orders[:0:0]
		for _, o := range orders {
			if o.ProductID == params.ProductID {
				filtered = append(filtered, o)
			}
		}
		orders = filtered

		price, ok, err := g.source.ReferencePrice(ctx, params.ProductID)
		if err != nil {
			g.log.Warn("reference price lookup failed, using historical prices",
				logger.String("product_id", params.ProductID), logger.Error(err))
		} else if ok {
			refPrice = price
		}
	}

	builder := analytics.NewSeriesBuilder(params.WindowDays, periodDays)
	return analytics.CandlesFrom(builder.Build(orders, refPrice), params.Start), nil
}

// analyzeProducts builds candles and indicators per product. Products are
// independent of each other, so each runs on its own goroutine; a product
// with too little history or a failing pricebook lookup is skipped.
func (g *ReportGenerator) analyzeProducts(
	ctx context.Context,
	orders []models.Order,
	products map[string]string,
	builder *analytics.SeriesBuilder,
	engine *analytics.IndicatorEngine,
	analysisStart time.Time,
) ([]analytics.ProductAnalysis, map[string][]models.Candle) {
	ordersByProduct := make(map[string][]models.Order)
	for _, o := range orders {
		if o.ProductID == "" {
			continue
		}
		ordersByProduct[o.ProductID] = append(ordersByProduct[o.ProductID], o)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		analyses []analytics.ProductAnalysis
		candles  = make(map[string][]models.Candle)
	)
	for productID, name := range products {
		productOrders := ordersByProduct[productID]
		if len(productOrders) == 0 {
			continue
		}
		wg.Add(1)
		go func(productID, name string, productOrders []models.Order) {
			defer wg.Done()

			var refPrice float64
			price, ok, err := g.source.ReferencePrice(ctx, productID)
			switch {
			case err != nil:
				g.metrics.RecordError("reference_price")
				g.log.Warn("reference price lookup failed, using historical prices",
					logger.String("product_id", productID), logger.Error(err))
			case ok:
				refPrice = price
			}

			series := analytics.CandlesFrom(builder.Build(productOrders, refPrice), analysisStart)
			if len(series) == 0 {
				g.log.Debug("skipping product with insufficient history",
					logger.String("product_id", productID))
				return
			}
			set := engine.Annotate(series)

			mu.Lock()
			analyses = append(analyses, analytics.ProductAnalysis{
				ProductID:   productID,
				ProductName: name,
				Candles:     series,
				Indicators:  set,
			})
			candles[productID] = series
			mu.Unlock()
		}(productID, name, productOrders)
	}
	wg.Wait()

	sort.Slice(analyses, func(i, j int) bool { return analyses[i].ProductID < analyses[j].ProductID })
	return analyses, candles
}
