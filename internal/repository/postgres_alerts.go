package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

// PGAlertStore implements AlertStore on Postgres.
type PGAlertStore struct {
	db *sql.DB
}

var _ domrepo.AlertStore = (*PGAlertStore)(nil)

func NewPGAlertStore(db *sql.DB) *PGAlertStore {
	return &PGAlertStore{db: db}
}

func (s *PGAlertStore) Insert(ctx context.Context, a *models.PriceAlert) error {
	query := `
		INSERT INTO price_alerts (product_id, type, message, priority, triggered_price, notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, query,
		a.ProductID, string(a.Type), a.Message, string(a.Priority), a.TriggeredPrice, a.Notified, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PGAlertStore) ListRecent(ctx context.Context, productID string, limit int) ([]models.PriceAlert, error) {
	query := `
		SELECT id, product_id, type, message, priority, triggered_price, notified, created_at
		FROM price_alerts
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceAlert, 0, limit)
	for rows.Next() {
		var (
			a        models.PriceAlert
			typ      string
			priority string
		)
		if err := rows.Scan(&a.ID, &a.ProductID, &typ, &a.Message, &priority, &a.TriggeredPrice, &a.Notified, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = models.AlertType(typ)
		a.Priority = models.AlertPriority(priority)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGAlertStore) MarkNotified(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE price_alerts SET notified = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark alert notified: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

func (s *PGAlertStore) Counts(ctx context.Context) (int, int, error) {
	var total, notified int
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE notified = true) FROM price_alerts`
	if err := s.db.QueryRowContext(ctx, query).Scan(&total, &notified); err != nil {
		return 0, 0, fmt.Errorf("count alerts: %w", err)
	}
	return total, notified, nil
}
