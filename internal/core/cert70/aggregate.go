// Package cert70 aggregates persisted movements and their credits into the
// totals and detail ledger of a Certificado 70.
package cert70

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/entity"
)

// Amounts holds the twelve certificate figures shared by totals and detail rows.
type Amounts struct {
	Historical        int64 `json:"monto_historico"`
	Adjusted          int64 `json:"monto_actualizado"`
	RAI               int64 `json:"rai"`
	DDAN              int64 `json:"ddan"`
	REX               int64 `json:"rex"`
	INR               int64 `json:"inr"`
	SAC               int64 `json:"sac"`
	CreditWithRefund  int64 `json:"credito_con_dev"`
	CreditNoRefund    int64 `json:"credito_sin_dev"`
	CreditRestitution int64 `json:"credito_restitucion"`
	ISFUT             int64 `json:"isfut"`
	OtherCredits      int64 `json:"otros_creditos"`
}

// Totals is the certificate summary. It is always recomputed from the detail rows.
type Totals struct {
	Amounts
}

// DetailRow is one ledger line per movement.
type DetailRow struct {
	Date        string                 `json:"fecha"`
	Type        constants.MovementType `json:"tipo"`
	Attribution string                 `json:"imputacion"`
	Amounts
}

// DateLayout renders detail dates as DD-MM-YYYY.
const DateLayout = "02-01-2006"

// AttributionBucket routes a movement's adjusted amount by attribution code.
type AttributionBucket struct {
	Code constants.AttributionCode
	add  func(a *Amounts, v int64)
}

// AttributionBuckets is evaluated in order; the first code contained in the
// upper-cased attribution wins. No match adds to the grand totals only.
var AttributionBuckets = []AttributionBucket{
	{Code: constants.RAI, add: func(a *Amounts, v int64) { a.RAI += v }},
	{Code: constants.DDAN, add: func(a *Amounts, v int64) { a.DDAN += v }},
	{Code: constants.REX, add: func(a *Amounts, v int64) { a.REX += v }},
	{Code: constants.INR, add: func(a *Amounts, v int64) { a.INR += v }},
	{Code: constants.SAC, add: func(a *Amounts, v int64) { a.SAC += v }},
}

// CreditBucket routes a credit by keywords found in its lower-cased type label.
type CreditBucket struct {
	Name     string
	Keywords []string
	add      func(a *Amounts, v int64)
}

// CreditBuckets is evaluated in order; labels matching none go to otros_creditos.
var CreditBuckets = []CreditBucket{
	{Name: "credito_con_dev", Keywords: []string{"con devolución", "con devolucion"}, add: func(a *Amounts, v int64) { a.CreditWithRefund += v }},
	{Name: "credito_sin_dev", Keywords: []string{"sin devolución", "sin devolucion"}, add: func(a *Amounts, v int64) { a.CreditNoRefund += v }},
	{Name: "credito_restitucion", Keywords: []string{"restitución", "restitucion"}, add: func(a *Amounts, v int64) { a.CreditRestitution += v }},
	{Name: "isfut", Keywords: []string{"isfut"}, add: func(a *Amounts, v int64) { a.ISFUT += v }},
}

// Aggregate builds the ledger and totals for movements in input order.
// Callers pass only the movements that count for the certificate.
func Aggregate(movements []entity.Movement, credits map[uuid.UUID][]entity.Credit) (Totals, []DetailRow) {
	var totals Totals
	rows := make([]DetailRow, 0, len(movements))

	for _, m := range movements {
		adjusted := m.HistoricalAmount
		if m.AdjustedAmount != nil && *m.AdjustedAmount != 0 {
			adjusted = *m.AdjustedAmount
		}

		row := DetailRow{
			Date: m.Date.Format(DateLayout),
			Type: m.Type,
		}
		row.Historical = m.HistoricalAmount
		row.Adjusted = adjusted

		if m.AttributionCode != nil {
			row.Attribution = *m.AttributionCode
			if b, ok := attributionBucket(*m.AttributionCode); ok {
				b.add(&row.Amounts, adjusted)
			}
		}

		for _, c := range credits[m.ID] {
			label := ""
			if c.Type != nil {
				label = *c.Type
			}
			creditBucket(label)(&row.Amounts, c.Amount)
		}

		totals.addRow(row.Amounts)
		rows = append(rows, row)
	}
	return totals, rows
}

func (t *Totals) addRow(a Amounts) {
	t.Historical += a.Historical
	t.Adjusted += a.Adjusted
	t.RAI += a.RAI
	t.DDAN += a.DDAN
	t.REX += a.REX
	t.INR += a.INR
	t.SAC += a.SAC
	t.CreditWithRefund += a.CreditWithRefund
	t.CreditNoRefund += a.CreditNoRefund
	t.CreditRestitution += a.CreditRestitution
	t.ISFUT += a.ISFUT
	t.OtherCredits += a.OtherCredits
}

func attributionBucket(code string) (AttributionBucket, bool) {
	upper := strings.ToUpper(code)
	for _, b := range AttributionBuckets {
		if strings.Contains(upper, string(b.Code)) {
			return b, true
		}
	}
	return AttributionBucket{}, false
}

func creditBucket(label string) func(a *Amounts, v int64) {
	lower := strings.ToLower(label)
	for _, b := range CreditBuckets {
		for _, k := range b.Keywords {
			if strings.Contains(lower, k) {
				return b.add
			}
		}
	}
	return func(a *Amounts, v int64) { a.OtherCredits += v }
}
