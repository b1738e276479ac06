package parser

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuam/calificaciones/constants"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantType   constants.MovementType
		wantCode   constants.AttributionCode
		wantAmount int64
		wantDate   string
	}{
		{
			name:       "renta afecta",
			line:       "01/01/2024 Retiro 1.500.000 Renta Afecta Global Complementario",
			wantType:   constants.Retiro,
			wantCode:   constants.RAI,
			wantAmount: 1500000,
			wantDate:   "01/01/2024",
		},
		{
			name:       "ingreso no renta",
			line:       "05/05/2024 Dividendo 2.000.000 Ingreso No Renta (INR)",
			wantType:   constants.Dividendo,
			wantCode:   constants.INR,
			wantAmount: 2000000,
			wantDate:   "05/05/2024",
		},
		{
			name:       "devolucion de capital",
			line:       "10/10/2024 Retiro 500.000 Devolucion de Capital",
			wantType:   constants.Retiro,
			wantCode:   constants.DDAN,
			wantAmount: 500000,
			wantDate:   "10/10/2024",
		},
		{
			name:       "accented devolución",
			line:       "10-10-2024 Remesa 750.000 Devolución de capital",
			wantType:   constants.Remesa,
			wantCode:   constants.DDAN,
			wantAmount: 750000,
			wantDate:   "10-10-2024",
		},
		{
			name:       "no code keyword",
			line:       "15/03/2023 Remesa 500.000",
			wantType:   constants.Remesa,
			wantCode:   constants.Unclassified,
			wantAmount: 500000,
			wantDate:   "15/03/2023",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ClassifyLine(tt.line)
			require.NotNil(t, m)
			assert.Equal(t, tt.wantType, m.Type)
			assert.Equal(t, tt.wantCode, m.Attribution)
			assert.Equal(t, tt.wantAmount, m.Amount)
			assert.Equal(t, tt.wantDate, m.Date)
			assert.Equal(t, tt.line, m.SourceText)
			assert.Nil(t, m.OwnerRUT)
		})
	}
}

func TestClassifyLine_Skipped(t *testing.T) {
	for _, line := range []string{
		"Devolucion de Capital 500.000",            // no date
		"10/10/2024 Devolucion de Capital 500.000", // no movement keyword
		"CERTIFICADO DE RETIROS",
		"",
	} {
		assert.Nil(t, ClassifyLine(line), line)
	}
}

func TestClassifyLine_TypePriority(t *testing.T) {
	m := ClassifyLine("01/06/2024 Dividendo pagado como retiro 10.000")
	require.NotNil(t, m)
	assert.Equal(t, constants.Retiro, m.Type)
}

func TestLineAttributions_Order(t *testing.T) {
	var codes []constants.AttributionCode
	for _, r := range LineAttributions {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []constants.AttributionCode{constants.RAI, constants.DDAN, constants.REX, constants.INR, constants.SAC}, codes)

	// both RAI and INR terms present: the earlier rule wins
	m := ClassifyLine("01/01/2024 Retiro 100 renta afecta e ingreso no renta")
	require.NotNil(t, m)
	assert.Equal(t, constants.RAI, m.Attribution)
}

func TestClassifyRow(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		row := []string{" 12.345.678-5 ", "Juan Pérez Soto", "DIV", "01/02/2024", "$1.500.000", "1.000"}
		m := ClassifyRow(row, "2024-04-30")
		require.NotNil(t, m)
		assert.Equal(t, "12.345.678-5", *m.OwnerRUT)
		assert.Equal(t, constants.Dividendo, m.Type)
		assert.Equal(t, constants.Unclassified, m.Attribution)
		require.NotNil(t, m.MatchedCode)
		assert.Equal(t, "DIV", *m.MatchedCode)
		assert.Equal(t, int64(1500000), m.Amount)
		assert.Equal(t, "01/02/2024", m.Date)
		require.NotNil(t, m.OwnerName)
		assert.Equal(t, "Juan Pérez Soto", *m.OwnerName)
		assert.Equal(t, "12.345.678-5 | Juan Pérez Soto | DIV | 01/02/2024 | $1.500.000 | 1.000", m.SourceText)
	})

	t.Run("no identifier", func(t *testing.T) {
		assert.Nil(t, ClassifyRow([]string{"Total", "3.000.000"}, "2024-01-01"))
	})

	t.Run("code inside cell token", func(t *testing.T) {
		m := ClassifyRow([]string{"9.876.543-3", "Retiro RAI 2023", "250.000"}, "2024-01-01")
		require.NotNil(t, m)
		assert.Equal(t, constants.Retiro, m.Type)
		assert.Equal(t, constants.RAI, m.Attribution)
		assert.Equal(t, int64(250000), m.Amount)
		// the only lettered cell holds a stop word
		assert.Nil(t, m.OwnerName)
	})

	t.Run("first cell with a code wins", func(t *testing.T) {
		m := ClassifyRow([]string{"9.876.543-3", "REM", "REX"}, "2024-01-01")
		require.NotNil(t, m)
		assert.Equal(t, constants.Remesa, m.Type)
		assert.Equal(t, "REM", *m.MatchedCode)
	})

	t.Run("defaults", func(t *testing.T) {
		m := ClassifyRow([]string{"9.876.543-3", "Ana", "Bea"}, "2024-01-01")
		require.NotNil(t, m)
		assert.Equal(t, constants.Retiro, m.Type)
		assert.Equal(t, constants.Unclassified, m.Attribution)
		assert.Nil(t, m.MatchedCode)
		assert.Equal(t, int64(0), m.Amount)
		assert.Equal(t, "2024-01-01", m.Date)
		// ties keep the earliest cell
		assert.Equal(t, "Ana", *m.OwnerName)
	})

	t.Run("max amount", func(t *testing.T) {
		m := ClassifyRow([]string{"9.876.543-3", "1.000", "$ 20.000", "300,000"}, "2024-01-01")
		require.NotNil(t, m)
		assert.Equal(t, int64(300000), m.Amount)
	})
}

func TestRowCodes_Order(t *testing.T) {
	var codes []string
	for _, c := range RowCodes {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"DIV", "RET", "REM", "RAI", "REX"}, codes)
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
}

func TestParser_Lines(t *testing.T) {
	text := `CERTIFICADO DE RETIROS
Empresa: 76.543.210-3
Propietario: 12.345.678-5
Fecha: 15/04/2023
Detalle de Retiros:
01/01/2023 Retiro 1.000.000
15/03/2023 Remesa 500.000`

	res := NewParser(WithClock(fixedClock)).Parse(text, nil)

	assert.Equal(t, StrategyLines, res.Strategy)
	require.NotNil(t, res.CompanyRUT)
	assert.Equal(t, "76.543.210-3", *res.CompanyRUT)
	// the first printed RUT is also the document owner
	require.NotNil(t, res.OwnerRUT)
	assert.Equal(t, "76.543.210-3", *res.OwnerRUT)
	require.NotNil(t, res.DocumentDate)
	assert.Equal(t, "15/04/2023", *res.DocumentDate)

	require.Len(t, res.Movements, 2)
	assert.Equal(t, constants.Retiro, res.Movements[0].Type)
	assert.Equal(t, int64(1000000), res.Movements[0].Amount)
	assert.Equal(t, "01/01/2023", res.Movements[0].Date)
	for _, m := range res.Movements {
		require.NotNil(t, m.OwnerRUT)
		assert.Equal(t, "76.543.210-3", *m.OwnerRUT)
	}
	assert.Equal(t, constants.Remesa, res.Movements[1].Type)
	assert.Equal(t, int64(500000), res.Movements[1].Amount)
}

func TestParser_Tables(t *testing.T) {
	text := "Declaración Jurada 1948\nEmpresa 76.543.210-3\nFecha 30/04/2024"
	tables := []Table{
		{
			{"RUT", "Nombre", "Tipo", "Fecha", "Monto"},
			{"12.345.678-5", "Juan Pérez", "RAI", "15/01/2024", "1.200.000"},
			{"9.876.543-3", "María Soto", "DIV", "", "300.000"},
		},
	}

	res := NewParser(WithClock(fixedClock)).Parse(text, tables)

	assert.Equal(t, StrategyTables, res.Strategy)
	assert.Equal(t, "76.543.210-3", *res.CompanyRUT)
	assert.Nil(t, res.OwnerRUT)
	require.Len(t, res.Movements, 2)

	first := res.Movements[0]
	assert.Equal(t, "12.345.678-5", *first.OwnerRUT)
	assert.Equal(t, constants.RAI, first.Attribution)
	assert.Equal(t, "15/01/2024", first.Date)

	second := res.Movements[1]
	assert.Equal(t, "9.876.543-3", *second.OwnerRUT)
	assert.Equal(t, constants.Dividendo, second.Type)
	assert.Equal(t, "30/04/2024", second.Date)
	assert.Equal(t, "María Soto", *second.OwnerName)
}

func TestParser_DJ1948WithoutTablesReadsLines(t *testing.T) {
	res := NewParser(WithClock(fixedClock)).Parse("Detalle de Retiros\n02/02/2024 Retiro 10.000 RAI", nil)
	assert.Equal(t, StrategyLines, res.Strategy)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, constants.RAI, res.Movements[0].Attribution)
	assert.Nil(t, res.OwnerRUT)
	assert.Nil(t, res.Movements[0].OwnerRUT)
}

func TestParser_FallbackDate(t *testing.T) {
	res := NewParser(WithClock(fixedClock)).Parse("documento sin fecha", nil)
	require.NotNil(t, res.DocumentDate)
	assert.Equal(t, "2024-06-01", *res.DocumentDate)
	assert.Nil(t, res.CompanyRUT)
	assert.NotNil(t, res.Movements)
	assert.Empty(t, res.Movements)
}

func TestParseDate(t *testing.T) {
	for in, want := range map[string]time.Time{
		"01/02/2024":      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		"1-2-2024":        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		"2024-02-01":      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		"01/02/2024 pago": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDate("31/02/2024")
	assert.Error(t, err)
	_, err = ParseDate("ayer")
	assert.Error(t, err)
}

func TestDecodeReviewed(t *testing.T) {
	res := NewParser(WithClock(fixedClock)).Parse("Empresa 76.543.210-3\n01/01/2024 Retiro 1.500.000 Renta Afecta", nil)
	payload, err := json.Marshal(res)
	require.NoError(t, err)

	decoded, err := DecodeReviewed(payload)
	require.NoError(t, err)
	assert.Equal(t, res, decoded)

	_, err = DecodeReviewed([]byte(`{"calificaciones":[{"fecha":"01/01/2024","tipo":"prestamo","monto":10}]}`))
	assert.Error(t, err)

	_, err = DecodeReviewed([]byte(`{"calificaciones":[{"fecha":"01/01/2024","tipo":"retiro","monto":-5}]}`))
	assert.Error(t, err)

	decoded, err = DecodeReviewed([]byte(`{"calificaciones":[{"fecha":"01/01/2024","tipo":"retiro","monto":5}]}`))
	require.NoError(t, err)
	assert.Equal(t, constants.Unclassified, decoded.Movements[0].Attribution)
}
