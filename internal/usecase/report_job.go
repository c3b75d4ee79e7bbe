package usecase

import (
	"context"
	"fmt"
	"time"

	drepo "SellingView/internal/domain/repository"
	"SellingView/pkg/queue"
)

// ReportJobType is the queue message type for async report generation.
const ReportJobType = "report.generate"

// ReportJobPayload is the queue payload for a report run. Start and End are
// unix seconds; zero means "derive from window".
type ReportJobPayload struct {
	AccountID  string `json:"account_id"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Resolution string `json:"resolution"`
	WindowDays int    `json:"window_days"`
	WarmupDays int    `json:"warmup_days"`
}

// ReportJob generates reports from queued requests. Results reach consumers
// through the report publisher attached to the generator.
type ReportJob struct {
	gen *ReportGenerator
}

func NewReportJob(gen *ReportGenerator) *ReportJob {
	return &ReportJob{gen: gen}
}

var _ queue.Job = (*ReportJob)(nil)

func (j *ReportJob) Name() string { return "report_generator" }

func (j *ReportJob) Type() string { return ReportJobType }

func (j *ReportJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ReportJobPayload](payload)
	if err != nil {
		return fmt.Errorf("report job payload: %w", err)
	}
	if p.AccountID == "" {
		return fmt.Errorf("report job: account_id required")
	}
	windowDays := p.WindowDays
	if windowDays <= 0 {
		windowDays = 90
	}
	warmupDays := p.WarmupDays
	if warmupDays <= 0 {
		warmupDays = 180
	}
	end := time.Now().UTC()
	if p.End > 0 {
		end = time.Unix(p.End, 0).UTC()
	}
	start := end.AddDate(0, 0, -windowDays)
	if p.Start > 0 {
		start = time.Unix(p.Start, 0).UTC()
	}

	_, err = j.gen.Generate(ctx, GenerateParams{
		AccountID:  p.AccountID,
		Start:      start,
		End:        end,
		Resolution: drepo.NormalizeResolution(p.Resolution),
		WindowDays: windowDays,
		WarmupDays: warmupDays,
	})
	return err
}
