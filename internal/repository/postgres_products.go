package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

const productColumns = `id, sku, title, url, image_url, current_price, target_price, currency,
	   check_interval, is_active, priority, notify_email, notify_slack, notify_desktop,
	   created_at, updated_at, last_checked_at`

// PGProductStore implements ProductStore on Postgres.
type PGProductStore struct {
	db *sql.DB
}

var _ domrepo.ProductStore = (*PGProductStore)(nil)

func NewPGProductStore(db *sql.DB) *PGProductStore {
	return &PGProductStore{db: db}
}

func (s *PGProductStore) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (
			id, sku, title, url, image_url, current_price, target_price, currency,
			check_interval, is_active, priority, notify_email, notify_slack, notify_desktop,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.SKU, p.Title, p.URL, p.ImageURL, p.CurrentPrice, targetOrNull(p.TargetPrice), p.Currency,
		p.CheckInterval, p.IsActive, p.Priority, p.NotifyEmail, p.NotifySlack, p.NotifyDesktop,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *PGProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *PGProductStore) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY priority ASC, created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PGProductStore) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET
			sku = $2, title = $3, url = $4, image_url = $5, current_price = $6,
			target_price = $7, currency = $8, check_interval = $9, is_active = $10,
			priority = $11, notify_email = $12, notify_slack = $13, notify_desktop = $14,
			updated_at = $15
		WHERE id = $1
	`
	p.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, query,
		p.ID, p.SKU, p.Title, p.URL, p.ImageURL, p.CurrentPrice,
		targetOrNull(p.TargetPrice), p.Currency, p.CheckInterval, p.IsActive,
		p.Priority, p.NotifyEmail, p.NotifySlack, p.NotifyDesktop,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(result)
}

func (s *PGProductStore) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE products SET is_active = $2, updated_at = $3 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("set product active: %w", err)
	}
	return requireRow(result)
}

func (s *PGProductStore) TouchChecked(ctx context.Context, id string, at time.Time, price decimal.Decimal) error {
	query := `UPDATE products SET last_checked_at = $2, current_price = $3, updated_at = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, at, price)
	if err != nil {
		return fmt.Errorf("touch product: %w", err)
	}
	return requireRow(result)
}

func (s *PGProductStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *PGProductStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_active = true`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active products: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p           models.Product
		imageURL    sql.NullString
		target      sql.NullString
		lastChecked sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Title, &p.URL, &imageURL, &p.CurrentPrice, &target, &p.Currency,
		&p.CheckInterval, &p.IsActive, &p.Priority, &p.NotifyEmail, &p.NotifySlack, &p.NotifyDesktop,
		&p.CreatedAt, &p.UpdatedAt, &lastChecked,
	)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		p.ImageURL = imageURL.String
	}
	if target.Valid {
		t, err := decimal.NewFromString(target.String)
		if err != nil {
			return nil, fmt.Errorf("parse target price: %w", err)
		}
		p.TargetPrice = t
	}
	if lastChecked.Valid {
		p.LastCheckedAt = &lastChecked.Time
	}
	return &p, nil
}

// targetOrNull maps the zero decimal to NULL so "no target" stays
// distinguishable in the database.
func targetOrNull(target decimal.Decimal) interface{} {
	if !target.IsPositive() {
		return nil
	}
	return target
}

func requireRow(result sql.Result) error {
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}
