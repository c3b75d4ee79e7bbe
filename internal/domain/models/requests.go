package models

// Requests for report HTTP endpoints. Defined in domain for consistency and reuse.

type GenerateReportRequest struct {
	AccountID  string `query:"account_id" json:"account_id" validate:"required"`
	Start      string `query:"start" json:"start"`
	End        string `query:"end" json:"end"`
	Resolution string `query:"resolution" json:"resolution" default:"3D" validate:"oneof=3D 1W 2W 1M"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
	WarmupDays int    `query:"warmup_days" json:"warmup_days" default:"180" validate:"gte=0,lte=730"`
}

type CandlesRequest struct {
	AccountID  string `query:"account_id" json:"account_id" validate:"required"`
	ProductID  string `query:"product_id" json:"product_id"`
	Start      string `query:"start" json:"start"`
	End        string `query:"end" json:"end"`
	Resolution string `query:"resolution" json:"resolution" default:"3D" validate:"oneof=3D 1W 2W 1M"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
}
