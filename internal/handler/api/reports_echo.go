package api

import (
	"time"

	models "SellingView/internal/domain/models"
	domrepo "SellingView/internal/domain/repository"
	"SellingView/internal/usecase"
	xhttp "SellingView/pkg/http"
	xlogger "SellingView/pkg/logger"
	"SellingView/pkg/util"

	"github.com/labstack/echo/v4"
)

// ReportsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ReportsEchoHandler struct {
	logger *xlogger.Logger
	gen    *usecase.ReportGenerator
}

func NewReportsEchoHandler(logger *xlogger.Logger, gen *usecase.ReportGenerator) *ReportsEchoHandler {
	return &ReportsEchoHandler{logger: logger, gen: gen}
}

func (h *ReportsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.POST("/reports", h.GenerateReport)
	g.GET("/candles", h.Candles)
}

func (h *ReportsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// reportResponse is the wire shape of a generated report.
type reportResponse struct {
	AccountID    string    `json:"account_id"`
	AccountName  string    `json:"account_name"`
	GeneratedAt  time.Time `json:"generated_at"`
	Overview     string    `json:"overview"`
	WeekDetail   string    `json:"week_detail"`
	TotalSummary string    `json:"total_summary"`
	Weeks        int       `json:"weeks"`
	Products     int       `json:"products"`
}

func (h *ReportsEchoHandler) GenerateReport(c echo.Context) error {
	req := &models.GenerateReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := domrepo.NormalizeResolution(req.Resolution)

	now := time.Now().UTC()
	end := util.ParseTimeDefault(req.End, now)
	start := util.ParseTimeDefault(req.Start, end.AddDate(0, 0, -req.WindowDays))
	start, end = util.AlignFromTo(start, end)

	report, err := h.gen.Generate(c.Request().Context(), usecase.GenerateParams{
		AccountID:  req.AccountID,
		Start:      start,
		End:        end,
		Resolution: res,
		WindowDays: req.WindowDays,
		WarmupDays: req.WarmupDays,
	})
	if err != nil {
		h.logger.Error("report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, reportResponse{
		AccountID:    report.AccountID,
		AccountName:  report.AccountName,
		GeneratedAt:  report.GeneratedAt,
		Overview:     report.Overview,
		WeekDetail:   report.WeekDetail,
		TotalSummary: report.TotalSummary,
		Weeks:        len(report.Weeks),
		Products:     len(report.Opportunities),
	})
}

type candleResponse struct {
	PeriodStart time.Time `json:"period_start"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	UnitPrice   float64   `json:"unit_price"`
	IsLive      bool      `json:"is_live"`
}

func (h *ReportsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := domrepo.NormalizeResolution(req.Resolution)

	now := time.Now().UTC()
	end := util.ParseTimeDefault(req.End, now)
	start := util.ParseTimeDefault(req.Start, end.AddDate(0, 0, -req.WindowDays))
	start, end = util.AlignFromTo(start, end)

	candles, err := h.gen.Candles(c.Request().Context(), usecase.CandlesParams{
		AccountID:  req.AccountID,
		ProductID:  req.ProductID,
		Start:      start,
		End:        end,
		Resolution: res,
		WindowDays: req.WindowDays,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	rows := make([]candleResponse, len(candles))
	for i, cd := range candles {
		rows[i] = candleResponse{
			PeriodStart: cd.PeriodStart,
			Open:        cd.Open,
			High:        cd.High,
			Low:         cd.Low,
			Close:       cd.Close,
			Volume:      cd.Volume,
			UnitPrice:   cd.UnitPrice,
			IsLive:      cd.IsLive,
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
