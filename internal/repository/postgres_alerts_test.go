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

func TestPGAlertStore_Insert_AssignsID(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGAlertStore(sqlDB)

	mock.ExpectQuery("INSERT INTO price_alerts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	a := &models.PriceAlert{
		ProductID:      "B0TEST01",
		Type:           models.AlertPredictedPriceDrop,
		Message:        "AI predicts price drop of $15.00 (11.5%)",
		Priority:       models.PriorityHigh,
		TriggeredPrice: decimal.NewFromFloat(129.99),
	}
	err = store.Insert(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, int64(42), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAlertStore_Insert_KeepsExplicitCreatedAt(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGAlertStore(sqlDB)

	mock.ExpectQuery("INSERT INTO price_alerts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	a := &models.PriceAlert{
		ProductID: "B0TEST01",
		Type:      models.AlertTargetReached,
		Message:   "target reached",
		Priority:  models.PriorityHigh,
		CreatedAt: created,
	}
	err = store.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, created, a.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAlertStore_ListRecent(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGAlertStore(sqlDB)

	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "product_id", "type", "message", "priority", "triggered_price", "notified", "created_at"}).
		AddRow(2, "B0TEST01", "deal_probability", "High probability (83.0%) of deal based on historical patterns", "medium", "119.99", false, created.Add(time.Hour)).
		AddRow(1, "B0TEST01", "downward_trend", "Strong downward trend detected. Good time to wait for lower prices.", "medium", "129.99", true, created)
	mock.ExpectQuery("SELECT (.+) FROM price_alerts").WillReturnRows(rows)

	out, err := store.ListRecent(context.Background(), "B0TEST01", 10)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, models.AlertDealProbability, out[0].Type)
	assert.Equal(t, models.PriorityMedium, out[0].Priority)
	assert.False(t, out[0].Notified)
	assert.True(t, out[1].Notified)
	assert.True(t, decimal.NewFromFloat(119.99).Equal(out[0].TriggeredPrice))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAlertStore_MarkNotified_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPGAlertStore(sqlDB)

	mock.ExpectExec("UPDATE price_alerts SET notified").WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.MarkNotified(context.Background(), 999)
	assert.True(t, errors.Is(err, domrepo.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
