package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

var productRowColumns = []string{
	"id", "sku", "title", "url", "image_url", "current_price", "target_price", "currency",
	"check_interval", "is_active", "priority", "notify_email", "notify_slack", "notify_desktop",
	"created_at", "updated_at", "last_checked_at",
}

func TestPGProductStore_Create_SetsTimestamps(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	mock.ExpectExec("INSERT INTO products").WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.Product{
		ID:            "B0TEST01",
		SKU:           "B0TEST01",
		Title:         "Mechanical Keyboard",
		URL:           "https://example.com/dp/B0TEST01",
		CurrentPrice:  decimal.NewFromFloat(129.99),
		Currency:      "USD",
		CheckInterval: "1h",
		IsActive:      true,
		Priority:      1,
	}
	err = store.Create(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_GetByID_ScansNullableColumns(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(productRowColumns).AddRow(
		"B0TEST01", "B0TEST01", "Mechanical Keyboard", "https://example.com/dp/B0TEST01",
		nil, "129.99", nil, "USD",
		"1h", true, 1, true, false, false,
		created, created, nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").WillReturnRows(rows)

	p, err := store.GetByID(context.Background(), "B0TEST01")
	require.NoError(t, err)

	assert.Equal(t, "B0TEST01", p.ID)
	assert.Empty(t, p.ImageURL)
	assert.True(t, p.TargetPrice.IsZero())
	assert.False(t, p.HasTarget())
	assert.Nil(t, p.LastCheckedAt)
	assert.True(t, decimal.NewFromFloat(129.99).Equal(p.CurrentPrice))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_GetByID_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err = store.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domrepo.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_List_ActiveOnlyFiltersQuery(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	checked := created.Add(2 * time.Hour)
	rows := sqlmock.NewRows(productRowColumns).
		AddRow("B0TEST01", "B0TEST01", "Keyboard", "https://example.com/1",
			"https://img.example.com/1.jpg", "129.99", "99.00", "USD",
			"1h", true, 1, true, true, false, created, created, checked).
		AddRow("B0TEST02", "B0TEST02", "Monitor", "https://example.com/2",
			nil, "349.00", nil, "USD",
			"6h", true, 2, false, true, false, created, created, nil)
	mock.ExpectQuery("SELECT (.+) FROM products WHERE is_active = true ORDER BY priority").
		WillReturnRows(rows)

	out, err := store.List(context.Background(), true, 50, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].HasTarget())
	assert.True(t, decimal.NewFromFloat(99.00).Equal(out[0].TargetPrice))
	require.NotNil(t, out[0].LastCheckedAt)
	assert.Equal(t, checked, *out[0].LastCheckedAt)
	assert.False(t, out[1].HasTarget())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_Update_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	mock.ExpectExec("UPDATE products SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Update(context.Background(), &models.Product{ID: "missing", Currency: "USD"})
	assert.True(t, errors.Is(err, domrepo.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_TouchChecked(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	mock.ExpectExec("UPDATE products SET last_checked_at").WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.TouchChecked(context.Background(), "B0TEST01", time.Now(), decimal.NewFromFloat(119.99))
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGProductStore_CountActive(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGProductStore(sqlDB)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, mock.ExpectationsWereMet())
}
