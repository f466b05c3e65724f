package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/model"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, summary model.PortfolioSummary, transactions []model.Transaction) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	const sheetName = "Portfolio"
	if _, err := f.NewSheet(sheetName); err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillPositions(f, sheetName, summary); err != nil {
		return nil, "", err
	}

	if err := g.fillTransactions(f, sheetName, len(summary.Positions), transactions); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillPositions(f *excelize.File, sheetName string, summary model.PortfolioSummary) error {
	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Holdings")

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "shares")
	_ = f.SetCellStr(sheetName, "C2", "cost basis")
	_ = f.SetCellStr(sheetName, "D2", "live price")
	_ = f.SetCellStr(sheetName, "E2", "value")
	_ = f.SetCellStr(sheetName, "F2", "p&l")
	_ = f.SetCellStr(sheetName, "G2", "roi %")

	for i, position := range summary.Positions {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), position.Symbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), position.Shares.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), position.BuyCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), position.LivePrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), position.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), position.Pnl.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), position.RoiPercent.InexactFloat64())
	}

	totalsRow := len(summary.Positions) + 3
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalsRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", totalsRow), summary.TotalCost.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalsRow), summary.TotalCurrent.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", totalsRow), summary.TotalPnl.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillTransactions(f *excelize.File, sheetName string, positionsCount int, transactions []model.Transaction) error {
	rowNum := positionsCount + 6

	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("E%d", rowNum)); err != nil {
		return err
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Trade history")

	styleID, err := g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "side")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "symbol")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "shares")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "price")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "date")

	for _, transaction := range transactions {
		rowNum++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), string(transaction.Side))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), transaction.Symbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), transaction.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), transaction.Price.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), transaction.DtCreate)
	}

	return nil
}
