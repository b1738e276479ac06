package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/internal/core/cert70"
)

const (
	detailSheet  = "Detalle"
	summarySheet = "Certificado"
)

var detailHeaders = []string{
	"Fecha",
	"Tipo",
	"Imputación",
	"Monto histórico",
	"Monto actualizado",
	"RAI",
	"DDAN",
	"REX",
	"INR",
	"SAC",
	"Crédito con devolución",
	"Crédito sin devolución",
	"Crédito restitución",
	"ISFUT",
	"Otros créditos",
}

// ExportXLSX renders the stored certificate as a workbook with a Detalle
// sheet (one row per movement plus a TOTAL row) and a Certificado summary.
// A certificate not issued yet is generated first.
func (s *Service) ExportXLSX(ctx context.Context, companyID, ownerID uuid.UUID, year int) ([]byte, error) {
	start := time.Now()

	cert, err := s.load(ctx, companyID, ownerID, year)
	if err != nil {
		return nil, err
	}
	var totals cert70.Totals
	if err := json.Unmarshal(cert.Totals, &totals); err != nil {
		return nil, fmt.Errorf("decode totals: %w", err)
	}
	var details []cert70.DetailRow
	if err := json.Unmarshal(cert.Details, &details); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	company, owner, err := s.parties(ctx, s.store.Repositories(), companyID, ownerID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return nil, err
	}

	for i, h := range detailHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(detailSheet, cell, h)
	}

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(detailSheet, cell, v)
	}
	writeAmounts := func(a cert70.Amounts) {
		for i, v := range amountColumns(a) {
			write(4+i, v)
		}
	}
	for _, d := range details {
		write(1, d.Date)
		write(2, string(d.Type))
		write(3, d.Attribution)
		writeAmounts(d.Amounts)
		row++
	}
	write(1, "TOTAL")
	writeAmounts(totals.Amounts)

	_ = f.SetColWidth(detailSheet, "A", "A", 12) // fecha
	_ = f.SetColWidth(detailSheet, "B", "C", 14)
	_ = f.SetColWidth(detailSheet, "D", "O", 18) // amounts

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	ownerName := ""
	if owner.Name != nil {
		ownerName = *owner.Name
	}
	summary := [][2]any{
		{"Folio", cert.Folio},
		{"Año comercial", cert.Year},
		{"RUT empresa", company.RUT},
		{"Razón social", company.BusinessName},
		{"RUT propietario", owner.RUT},
		{"Propietario", ownerName},
		{"Fecha emisión", cert.IssuedAt.Format(cert70.DateLayout)},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 36)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("certificate.export.xlsx.ok",
		"folio", cert.Folio,
		"rows", len(details),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func amountColumns(a cert70.Amounts) []int64 {
	return []int64{
		a.Historical,
		a.Adjusted,
		a.RAI,
		a.DDAN,
		a.REX,
		a.INR,
		a.SAC,
		a.CreditWithRefund,
		a.CreditNoRefund,
		a.CreditRestitution,
		a.ISFUT,
		a.OtherCredits,
	}
}
