package models

// Requests for the prediction and analysis endpoints.

type PredictRequest struct {
	ProductID string `param:"id" json:"product_id" validate:"required"`
	DaysAhead int    `query:"days_ahead" json:"days_ahead" default:"7" validate:"gte=1,lte=365"`
}

type AnalysisRequest struct {
	ProductID  string `param:"id" json:"product_id" validate:"required"`
	PeriodDays int    `query:"period_days" json:"period_days" default:"30" validate:"gte=1,lte=365"`
}

type AlertsRequest struct {
	ProductID   string  `param:"id" json:"product_id" validate:"required"`
	TargetPrice float64 `query:"target_price" json:"target_price" validate:"gte=0"`
}

type HistoryRequest struct {
	ProductID string `param:"id" json:"product_id" validate:"required"`
	Days      int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type ReportRequest struct {
	ProductID string `param:"id" json:"product_id" validate:"required"`
	Days      int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=365"`
}
