package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	domrepo "PricePulse/internal/domain/repository"
)

// Reports builds downloadable spreadsheets from tracked-product data.
type Reports struct {
	products domrepo.ProductStore
	history  domrepo.PriceHistoryStore
}

func NewReports(products domrepo.ProductStore, history domrepo.PriceHistoryStore) *Reports {
	return &Reports{products: products, history: history}
}

// ReportParams bound the exported window.
type ReportParams struct {
	ProductID string
	Days      int
}

// PriceHistoryXLSX renders the product's observation series over the
// last Days as an xlsx workbook with one summary row block and one
// row per observation.
func (r *Reports) PriceHistoryXLSX(ctx context.Context, p ReportParams) ([]byte, string, error) {
	if p.ProductID == "" {
		return nil, "", fmt.Errorf("product id required")
	}
	if p.Days <= 0 {
		p.Days = 90
	}
	if p.Days > 365 {
		p.Days = 365
	}

	product, err := r.products.GetByID(ctx, p.ProductID)
	if err != nil {
		return nil, "", err
	}
	obs, err := r.history.ListObservations(ctx, p.ProductID, p.Days)
	if err != nil {
		return nil, "", fmt.Errorf("load price history: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Price History"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	// summary block
	_ = f.SetCellValue(sheet, "A1", "Product")
	_ = f.SetCellValue(sheet, "B1", product.Title)
	_ = f.SetCellValue(sheet, "A2", "Current price")
	_ = f.SetCellValue(sheet, "B2", product.CurrentPrice.StringFixed(2))
	_ = f.SetCellValue(sheet, "A3", "Window days")
	_ = f.SetCellValue(sheet, "B3", p.Days)
	_ = f.SetCellValue(sheet, "A4", "Observations")
	_ = f.SetCellValue(sheet, "B4", len(obs))

	headers := []string{"Observed At", "Price", "Old Price", "Discount %", "Rating", "Reviews", "Prime"}
	for i, hv := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		_ = f.SetCellValue(sheet, cell, hv)
	}
	for i, o := range obs {
		row := i + 7
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), o.ObservedAt.Format(time.RFC3339))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), o.PriceFloat())
		if o.OldPrice.IsPositive() {
			old, _ := o.OldPrice.Float64()
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), old)
		}
		if o.DiscountPct > 0 {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), o.DiscountPct)
		}
		if o.Rating > 0 {
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), o.Rating)
		}
		if o.ReviewsCount > 0 {
			_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), o.ReviewsCount)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), o.Prime)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	name := fmt.Sprintf("price-history-%s-%s.xlsx", p.ProductID, time.Now().Format("20060102"))
	return buf.Bytes(), name, nil
}
