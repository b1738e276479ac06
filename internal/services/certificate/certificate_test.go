package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/cert70"
	"github.com/nuam/calificaciones/internal/entity"
	"github.com/nuam/calificaciones/internal/repository"
)

type fixture struct {
	db      *repository.Database
	company *entity.Company
	owner   *entity.Owner
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "cert.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := repository.Open(ctx, common.DatabaseConfig{Driver: common.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	repos := db.Repositories()
	company, _, err := repos.Companies.GetOrCreate(ctx, "76.543.210-3", "Andes SpA")
	require.NoError(t, err)
	name := "Juan Pérez"
	owner, _, err := repos.Owners.GetOrCreate(ctx, company.ID, "12.345.678-5", &name)
	require.NoError(t, err)

	return fixture{db: db, company: company, owner: owner}
}

func (fx fixture) movement(t *testing.T, date time.Time, typ constants.MovementType, amount int64, adjusted *int64, code string, status constants.MovementStatus) uuid.UUID {
	t.Helper()
	m := &entity.Movement{
		CompanyID:        fx.company.ID,
		OwnerID:          fx.owner.ID,
		Date:             date,
		Type:             typ,
		HistoricalAmount: amount,
		AdjustedAmount:   adjusted,
		Status:           status,
	}
	if code != "" {
		m.AttributionCode = &code
	}
	require.NoError(t, fx.db.Repositories().Movements.Create(context.Background(), m))
	return m.ID
}

func (fx fixture) credit(t *testing.T, movementID uuid.UUID, label string, amount int64) {
	t.Helper()
	c := &entity.Credit{MovementID: movementID, Amount: amount}
	if label != "" {
		c.Type = &label
	}
	require.NoError(t, fx.db.Repositories().Credits.Create(context.Background(), c))
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seed(t *testing.T, fx fixture) {
	t.Helper()
	adjusted := int64(1050000)
	a := fx.movement(t, day(2024, 3, 1), constants.Retiro, 1000000, &adjusted, "RAI", constants.StatusActive)
	fx.credit(t, a, "Crédito con devolución", 100000)
	b := fx.movement(t, day(2024, 6, 15), constants.Dividendo, 500000, nil, "DDAN", constants.StatusActive)
	fx.credit(t, b, "ISFUT", 20000)
	fx.credit(t, b, "", 5000)
	fx.movement(t, day(2024, 8, 1), constants.Remesa, 900000, nil, "REX", constants.StatusPending)
	fx.movement(t, day(2023, 12, 31), constants.Retiro, 700000, nil, "RAI", constants.StatusActive)
}

func TestGenerate(t *testing.T) {
	fx := setup(t)
	seed(t, fx)
	ctx := context.Background()
	svc := NewService(fx.db, nil)

	cert, err := svc.Generate(ctx, fx.company.ID, fx.owner.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, repository.Folio(2024, cert.ID), cert.Folio)

	var totals cert70.Totals
	require.NoError(t, json.Unmarshal(cert.Totals, &totals))
	assert.Equal(t, cert70.Amounts{
		Historical:       1500000,
		Adjusted:         1550000,
		RAI:              1050000,
		DDAN:             500000,
		CreditWithRefund: 100000,
		ISFUT:            20000,
		OtherCredits:     5000,
	}, totals.Amounts)

	var details []cert70.DetailRow
	require.NoError(t, json.Unmarshal(cert.Details, &details))
	require.Len(t, details, 2)
	assert.Equal(t, "01-03-2024", details[0].Date)
	assert.Equal(t, "RAI", details[0].Attribution)
	assert.Equal(t, "15-06-2024", details[1].Date)
	assert.Equal(t, constants.Dividendo, details[1].Type)

	fx.movement(t, day(2024, 11, 30), constants.Remesa, 10000, nil, "SAC", constants.StatusActive)
	again, err := svc.GenerateByRUT(ctx, "76543210-3", "12345678-5", 2024)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, again.ID)
	assert.Equal(t, cert.Folio, again.Folio)
	require.NoError(t, json.Unmarshal(again.Totals, &totals))
	assert.Equal(t, int64(10000), totals.SAC)
	assert.Equal(t, int64(1510000), totals.Historical)
}

func TestGenerate_EmptyYear(t *testing.T) {
	fx := setup(t)
	cert, err := NewService(fx.db, nil).Generate(context.Background(), fx.company.ID, fx.owner.ID, 2022)
	require.NoError(t, err)

	var totals cert70.Totals
	require.NoError(t, json.Unmarshal(cert.Totals, &totals))
	assert.Zero(t, totals.Historical)
	assert.JSONEq(t, `[]`, string(cert.Details))
}

func TestGenerate_NotFound(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	svc := NewService(fx.db, nil)

	_, err := svc.Generate(ctx, uuid.New(), fx.owner.ID, 2024)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Generate(ctx, fx.company.ID, uuid.New(), 2024)
	assert.ErrorIs(t, err, common.ErrNotFound)

	other, _, err := fx.db.Repositories().Companies.GetOrCreate(ctx, "30.686.957-4", "")
	require.NoError(t, err)
	_, err = svc.Generate(ctx, other.ID, fx.owner.ID, 2024)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.GenerateByRUT(ctx, "76.543.210-3", "9.876.543-3", 2024)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Generate(ctx, fx.company.ID, fx.owner.ID, 0)
	assert.True(t, common.HasCode(err, common.CodeInvalidInput))
}

func TestExportXLSX(t *testing.T) {
	fx := setup(t)
	seed(t, fx)
	ctx := context.Background()
	svc := NewService(fx.db, nil)

	data, err := svc.ExportXLSX(ctx, fx.company.ID, fx.owner.ID, 2024)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{detailSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, detailHeaders, rows[0])
	assert.Equal(t, []string{"01-03-2024", "retiro", "RAI", "1000000", "1050000", "1050000", "0", "0", "0", "0", "100000", "0", "0", "0", "0"}, rows[1])
	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "1500000", rows[3][3])
	assert.Equal(t, "5000", rows[3][14])

	folio, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	stored, err := fx.db.Repositories().Certificates.Get(ctx, fx.company.ID, fx.owner.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, stored.Folio, folio)

	name, err := f.GetCellValue(summarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", name)
}
