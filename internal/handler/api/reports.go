package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	domrepo "SellingView/internal/domain/repository"
	icache "SellingView/internal/service/cache"
	"SellingView/internal/service/metrics"
	"SellingView/internal/service/ratelimit"
	"SellingView/internal/usecase"
	applogger "SellingView/pkg/logger"
	"SellingView/pkg/util"
)

type ReportsHandler struct {
	gen   *usecase.ReportGenerator
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewReportsHandler(gen *usecase.ReportGenerator) *ReportsHandler {
	metrics.Register()
	return &ReportsHandler{gen: gen, rl: ratelimit.New()}
}

func (h *ReportsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ReportsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ReportsHandler) Report() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "report"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			if h.l != nil {
				h.l.Warn("reports.report missing account_id")
			}
			http.Error(w, "account_id required", http.StatusBadRequest)
			return
		}
		windowDays := parseInt(r.URL.Query().Get("window_days"), 90)
		warmupDays := parseInt(r.URL.Query().Get("warmup_days"), 180)
		res := domrepo.NormalizeResolution(r.URL.Query().Get("resolution"))
		if !h.rl.Allow(r.RemoteAddr+":report", 2, 1) {
			if h.l != nil {
				h.l.Warn("reports.report rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		now := time.Now().UTC()
		end := util.ParseTimeDefault(r.URL.Query().Get("end"), now)
		from := util.ParseTimeDefault(r.URL.Query().Get("start"), end.AddDate(0, 0, -windowDays))
		from, end = util.AlignFromTo(from, end)
		cacheKey := "report:" + accountID + ":" + string(res) + ":" + end.Format("2006-01-02")
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("reports.report cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("reports.report cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("reports.report write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("reports.report cache_miss", applogger.String("key", cacheKey))
			}
		}
		report, err := h.gen.Generate(r.Context(), usecase.GenerateParams{
			AccountID:  accountID,
			Start:      from,
			End:        end,
			Resolution: res,
			WindowDays: windowDays,
			WarmupDays: warmupDays,
		})
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.report error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(reportResponse{
			AccountID:    report.AccountID,
			AccountName:  report.AccountName,
			GeneratedAt:  report.GeneratedAt,
			Overview:     report.Overview,
			WeekDetail:   report.WeekDetail,
			TotalSummary: report.TotalSummary,
			Weeks:        len(report.Weeks),
			Products:     len(report.Opportunities),
		})
		if err != nil {
			if h.l != nil {
				h.l.Error("reports.report marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 5*time.Minute); err != nil && h.l != nil {
				h.l.Warn("reports.report cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("reports.report write_error", applogger.Error(err))
		}
	}
}

func (h *ReportsHandler) Candles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "candles"
		defer func() { metrics.ReportLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		accountID := r.URL.Query().Get("account_id")
		if accountID == "" {
			if h.l != nil {
				h.l.Warn("reports.candles missing account_id")
			}
			http.Error(w, "account_id required", http.StatusBadRequest)
			return
		}
		productID := r.URL.Query().Get("product_id")
		windowDays := parseInt(r.URL.Query().Get("window_days"), 90)
		res := domrepo.NormalizeResolution(r.URL.Query().Get("resolution"))
		if !h.rl.Allow(r.RemoteAddr+":candles", 5, 2) {
			if h.l != nil {
				h.l.Warn("reports.candles rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		now := time.Now().UTC()
		end := util.ParseTimeDefault(r.URL.Query().Get("end"), now)
		from := util.ParseTimeDefault(r.URL.Query().Get("start"), end.AddDate(0, 0, -windowDays))
		from, end = util.AlignFromTo(from, end)
		cacheKey := "candles:" + accountID + ":" + productID + ":" + string(res) + ":" + end.Format("2006-01-02")
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("reports.candles cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("reports.candles cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("reports.candles write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("reports.candles cache_miss", applogger.String("key", cacheKey))
			}
		}
		candles, err := h.gen.Candles(r.Context(), usecase.CandlesParams{
			AccountID:  accountID,
			ProductID:  productID,
			Start:      from,
			End:        end,
			Resolution: res,
			WindowDays: windowDays,
		})
		if err != nil {
			metrics.ReportErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.candles error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
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
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(rows)
		if err != nil {
			if h.l != nil {
				h.l.Error("reports.candles marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, time.Minute); err != nil && h.l != nil {
				h.l.Warn("reports.candles cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("reports.candles write_error", applogger.Error(err))
		}
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
