package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
)

// CHPriceHistory implements PriceHistoryStore backed by ClickHouse.
type CHPriceHistory struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var (
	_ domrepo.PriceHistoryStore      = (*CHPriceHistory)(nil)
	_ domrepo.LatestObservationStore = (*CHPriceHistory)(nil)
)

func NewCHPriceHistory(ch *pkgch.Client, table string) *CHPriceHistory {
	return &CHPriceHistory{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPriceHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceHistory) Append(ctx context.Context, obs models.PriceObservation) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (product_id, price, old_price, discount_pct, rating, reviews_count, prime, observed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	prime := uint8(0)
	if obs.Prime {
		prime = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		obs.ProductID,
		obs.PriceFloat(),
		oldPriceFloat(obs),
		obs.DiscountPct,
		obs.Rating,
		int64(obs.ReviewsCount),
		prime,
		obs.ObservedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append observation error",
				applogger.String("table", s.table),
				applogger.String("product_id", obs.ProductID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

func (s *CHPriceHistory) ListObservations(ctx context.Context, productID string, lookbackDays int) ([]models.PriceObservation, error) {
	start := time.Now()

	q := fmt.Sprintf(`
		SELECT product_id, price, old_price, discount_pct, rating, reviews_count, prime, observed_at
		FROM %s
		WHERE product_id = ?`, s.table)
	args := []interface{}{productID}
	if lookbackDays > 0 {
		q += " AND observed_at >= ?"
		args = append(args, time.Now().AddDate(0, 0, -lookbackDays))
	}
	q += " ORDER BY observed_at ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list observations query error",
				applogger.String("table", s.table),
				applogger.String("product_id", productID),
				applogger.Int("lookback_days", lookbackDays),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceObservation, 0, 256)
	for rows.Next() {
		var (
			obs      models.PriceObservation
			price    float64
			oldPrice float64
			reviews  int64
			prime    uint8
		)
		if err := rows.Scan(&obs.ProductID, &price, &oldPrice, &obs.DiscountPct, &obs.Rating, &reviews, &prime, &obs.ObservedAt); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse list observations scan error",
					applogger.String("table", s.table),
					applogger.String("product_id", productID),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs.Price = decimal.NewFromFloat(price)
		if oldPrice > 0 {
			obs.OldPrice = decimal.NewFromFloat(oldPrice)
		}
		obs.ReviewsCount = int(reviews)
		obs.Prime = prime == 1
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list observations rows error",
				applogger.String("table", s.table),
				applogger.String("product_id", productID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse list observations ok",
			applogger.String("table", s.table),
			applogger.String("product_id", productID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Latest returns the newest observation per product, at most limit rows.
// LIMIT 1 BY keeps the scan server-side.
func (s *CHPriceHistory) Latest(ctx context.Context, limit int) ([]models.PriceObservation, error) {
	q := fmt.Sprintf(`
		SELECT product_id, price, old_price, discount_pct, rating, reviews_count, prime, observed_at
		FROM %s
		ORDER BY product_id ASC, observed_at DESC
		LIMIT 1 BY product_id
		LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest observations query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceObservation, 0, 64)
	for rows.Next() {
		var (
			obs      models.PriceObservation
			price    float64
			oldPrice float64
			reviews  int64
			prime    uint8
		)
		if err := rows.Scan(&obs.ProductID, &price, &oldPrice, &obs.DiscountPct, &obs.Rating, &reviews, &prime, &obs.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs.Price = decimal.NewFromFloat(price)
		if oldPrice > 0 {
			obs.OldPrice = decimal.NewFromFloat(oldPrice)
		}
		obs.ReviewsCount = int(reviews)
		obs.Prime = prime == 1
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (s *CHPriceHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPriceHistory) Close() error {
	return nil // pool is owned by pkg/clickhouse
}

func oldPriceFloat(obs models.PriceObservation) float64 {
	f, _ := obs.OldPrice.Float64()
	return f
}
