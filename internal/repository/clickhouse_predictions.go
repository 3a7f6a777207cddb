package repository

import (
	"context"
	"database/sql"
	"fmt"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
)

// CHPredictionSink records produced forecasts in ClickHouse for model
// drift review and the reports endpoint.
type CHPredictionSink struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.PredictionSink = (*CHPredictionSink)(nil)

func NewCHPredictionSink(ch *pkgch.Client, table string) *CHPredictionSink {
	return &CHPredictionSink{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPredictionSink) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPredictionSink) Record(ctx context.Context, p models.PredictionResult, trend *models.TrendSummary) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (product_id, days_ahead, predicted_price, confidence, lower_bound, upper_bound, trend_direction, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)

	lower := sql.NullFloat64{}
	if p.LowerBound != nil {
		lower = sql.NullFloat64{Float64: *p.LowerBound, Valid: true}
	}
	upper := sql.NullFloat64{}
	if p.UpperBound != nil {
		upper = sql.NullFloat64{Float64: *p.UpperBound, Valid: true}
	}
	direction := ""
	if trend != nil {
		direction = string(trend.Direction)
	}

	_, err := s.db.ExecContext(ctx, q,
		p.ProductID,
		int32(p.DaysAhead),
		p.PredictedPrice,
		p.Confidence,
		lower,
		upper,
		direction,
		p.CreatedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse record prediction error",
				applogger.String("table", s.table),
				applogger.String("product_id", p.ProductID),
				applogger.Int("days_ahead", p.DaysAhead),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}
