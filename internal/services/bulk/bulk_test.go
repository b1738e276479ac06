package bulk

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/repository"
)

func openDB(t *testing.T) *repository.Database {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "bulk.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := repository.Open(ctx, common.DatabaseConfig{Driver: common.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

const upload = `rut_empresa,razon_social,rut_propietario,nombre_propietario,fecha,tipo_calificacion,monto,estado
76.543.210-3,Andes SpA,12.345.678-5,Juan Pérez,2024-03-01,retiro,"1.000.000",vigente
76.543.210-3,,12.345.678-K,Ana,01/04/2024,dividendo,500,
,,,,,,,
76.543.210-3,,9.876.543-3,,15-06-2024,Dividendos,"2500,50",
76.543.210-3,,9.876.543-3,,2024/07/01,prestamo,100,
76.543.210-3,,9.876.543-3,,31/02/2024,remesa,100,
76.543.210-3,,9.876.543-3,,2024-08-01,REM,$ 300,
`

func TestImportCSV(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	svc := NewService(db, nil)

	res, err := svc.Import(ctx, "carga.csv", strings.NewReader(upload))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	rows := make([]int, len(res.Errors))
	for i, e := range res.Errors {
		rows[i] = e.Row
	}
	assert.Equal(t, []int{3, 5, 6, 7}, rows)
	assert.Contains(t, res.Errors[0].Reason, "rut_propietario")
	assert.Contains(t, res.Errors[0].Reason, "not a valid RUT")
	assert.Contains(t, res.Errors[1].Reason, "fractional")
	assert.Equal(t, "tipo_calificacion must be one of retiro, remesa, dividendo", res.Errors[2].Reason)
	assert.Contains(t, res.Errors[3].Reason, "31/02/2024")
	assert.True(t, strings.HasPrefix(res.Messages()[0], "Row 3: "))

	company, err := db.Repositories().Companies.GetByRUT(ctx, "76.543.210-3")
	require.NoError(t, err)
	assert.Equal(t, "Andes SpA", company.BusinessName)

	movs, err := db.Repositories().Movements.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, constants.StatusActive, movs[0].Status)
	assert.Equal(t, int64(1000000), movs[0].HistoricalAmount)
	assert.Equal(t, constants.Retiro, movs[0].Type)
	assert.Equal(t, constants.StatusPending, movs[1].Status)
	assert.Equal(t, constants.Remesa, movs[1].Type)
	assert.Equal(t, int64(300), movs[1].HistoricalAmount)
}

func TestImportMissingColumns(t *testing.T) {
	svc := NewService(openDB(t), nil)
	_, err := svc.Import(context.Background(), "carga.csv", strings.NewReader("rut_empresa;monto\n76.543.210-3;100\n"))
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeMissingColumns))
	assert.Contains(t, err.Error(), "razon_social, rut_propietario, nombre_propietario, fecha, tipo_calificacion")
}

func TestImportXLSX(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	f := excelize.NewFile()
	header := []any{"RUT_Empresa", "razon_social", "rut_propietario", "nombre_propietario", "fecha", "tipo_calificacion", "monto", "monto_reajustado", "imputacion"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{
		"76.543.210-3", "Andes", "12.345.678-5", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "dividendo", 1500000, 1550000, "rex",
	}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := NewService(db, nil).Import(ctx, "carga.XLSX", buf)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Created)

	company, err := db.Repositories().Companies.GetByRUT(ctx, "76.543.210-3")
	require.NoError(t, err)
	movs, err := db.Repositories().Movements.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), movs[0].Date.UTC())
	require.NotNil(t, movs[0].AdjustedAmount)
	assert.Equal(t, int64(1550000), *movs[0].AdjustedAmount)
	require.NotNil(t, movs[0].AttributionCode)
	assert.Equal(t, "REX", *movs[0].AttributionCode)
	assert.Equal(t, constants.StatusPending, movs[0].Status)
}

func TestReadRows(t *testing.T) {
	rows, err := ReadRows("x.csv", strings.NewReader("\ufeffRUT;Monto\n1-9;100\n2-7\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"rut": "1-9", "monto": "100"}, rows[0])
	assert.Equal(t, map[string]string{"rut": "2-7", "monto": ""}, rows[1])

	_, err = ReadRows("x.txt", strings.NewReader("a"))
	assert.True(t, common.HasCode(err, common.CodeUnsupportedFormat))

	_, err = ReadRows("x.csv", strings.NewReader(""))
	assert.True(t, common.HasCode(err, common.CodeInvalidInput))
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1.500.000", 1500000, false},
		{"$ 1500000", 1500000, false},
		{"1500000,00", 1500000, false},
		{"1.500", 1500, false},
		{"2500,50", 0, true},
		{"1000.5", 0, true},
		{"0", 0, true},
		{"-10", 0, true},
		{"abc", 0, true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseAmount(c.in)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseRowDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01", "01/03/2024", "01-03-2024", "2024/03/01", "45352"} {
		got, err := ParseRowDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}
	_, err := ParseRowDate("1/3/24")
	assert.Error(t, err)
}
