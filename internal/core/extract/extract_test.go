package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nuam/calificaciones/internal/common"
	"github.com/nuam/calificaciones/internal/core/parser"
)

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error

	name string
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.name = name
	s.args = args
	return s.stdout, s.stderr, s.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

const layoutSample = `DECLARACION JURADA 1948 - Retiros
Empresa 76.543.210-3

12.345.678-5    Juan Perez      RAI     01/03/2024    1.000.000
9.876.543-3     Maria Soto      REX     15/06/2024    500.000
Total declarado   1.500.000
` + "\f" + `30.686.957-4    Ana Rojas    DIV    30/11/2024    80.000
`

func TestLayoutTables(t *testing.T) {
	tables := LayoutTables(layoutSample)
	require.Len(t, tables, 2)

	require.Len(t, tables[0], 2)
	assert.Equal(t, []string{"12.345.678-5", "Juan Perez", "RAI", "01/03/2024", "1.000.000"}, tables[0][0])
	assert.Equal(t, "9.876.543-3", tables[0][1][0])

	// page break closes the first table
	require.Len(t, tables[1], 1)
	assert.Equal(t, "Ana Rojas", tables[1][0][1])

	assert.Empty(t, LayoutTables("just one line\nanother  line"))
}

func TestPDFExtractor(t *testing.T) {
	r := &stubRunner{stdout: []byte(layoutSample)}
	e := NewPDFExtractor("", r, nil)

	doc, err := e.Extract(context.Background(), "/data/dj1948.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", r.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "/data/dj1948.pdf", "-"}, r.args)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, "pdftotext", doc.Method)
	assert.Len(t, doc.Tables, 2)
	assert.Contains(t, doc.Text, "12.345.678-5 Juan Perez RAI 01/03/2024 1.000.000")

	// the parser takes the table path for this document
	res := parser.NewParser().Parse(doc.Text, doc.Tables)
	assert.Equal(t, parser.StrategyTables, res.Strategy)
	assert.Len(t, res.Movements, 3)
}

func TestPDFExtractor_Failures(t *testing.T) {
	t.Run("command error", func(t *testing.T) {
		r := &stubRunner{stderr: []byte("Syntax Error"), err: errors.New("exit status 1")}
		doc, err := NewPDFExtractor("/usr/bin/pdftotext", r, nil).Extract(context.Background(), "x.pdf")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExtractionFailed))
		assert.Equal(t, "/usr/bin/pdftotext", r.name)
		assert.Equal(t, []string{"Syntax Error"}, doc.Warnings)

		var exErr *ExtractionError
		require.True(t, errors.As(err, &exErr))
		assert.Equal(t, "x.pdf", exErr.Source)
		assert.Equal(t, "pdftotext", exErr.Method)
	})

	t.Run("no text layer", func(t *testing.T) {
		r := &stubRunner{stdout: []byte("\f\n  \f")}
		_, err := NewPDFExtractor("", r, nil).Extract(context.Background(), "scan.pdf")
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.Contains(t, err.Error(), "no text layer")
	})
}

func TestXLSXExtractor(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"RUT", "Tipo", "Monto"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"12.345.678-5", "RET", 1000}))
	_, err := f.NewSheet("Resumen")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Resumen", "A1", "DJ 1948"))
	path := filepath.Join(t.TempDir(), "dj.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	doc, err := NewXLSXExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pages)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, []string{"12.345.678-5", "RET", "1000"}, doc.Tables[0][1])
	assert.Contains(t, doc.Text, "12.345.678-5 RET 1000")
	assert.Contains(t, doc.Text, "DJ 1948")

	_, err = NewXLSXExtractor(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestHTMLExtractor(t *testing.T) {
	page := `<html><head><style>.x{color:red}</style></head><body>
<h1>Certificado 1948</h1>
<table>
<tr><th>RUT</th><th>Nombre</th><th>Monto</th></tr>
<tr><td>12.345.678-5</td><td>Juan  Pérez</td><td>$1.000</td></tr>
<tr><td></td><td></td></tr>
</table></body></html>`
	path := writeFile(t, "cert.html", []byte(page))

	doc, err := NewHTMLExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Len(t, doc.Tables[0], 2)
	assert.Equal(t, []string{"RUT", "Nombre", "Monto"}, doc.Tables[0][0])
	assert.Equal(t, []string{"12.345.678-5", "Juan Pérez", "$1.000"}, doc.Tables[0][1])
	assert.Contains(t, doc.Text, "Certificado 1948")
	assert.Contains(t, doc.Text, "12.345.678-5 Juan Pérez $1.000")
	assert.NotContains(t, doc.Text, "color:red")
}

func TestTextExtractor_Windows1252(t *testing.T) {
	path := writeFile(t, "legacy.txt", []byte("Retiro 01/03/2024 devoluci\xf3n 1.000\r\n"))

	doc, err := NewTextExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Retiro 01/03/2024 devolución 1.000", doc.Text)
	assert.Equal(t, []string{"decoded as windows-1252"}, doc.Warnings)
	assert.Empty(t, doc.Tables)

	utf := writeFile(t, "utf.txt", []byte("\xef\xbb\xbfRemesa 02-05-2024 1.000"))
	doc, err = NewTextExtractor(nil).Extract(context.Background(), utf)
	require.NoError(t, err)
	assert.Equal(t, "Remesa 02-05-2024 1.000", doc.Text)
	assert.Empty(t, doc.Warnings)
}

func TestCSVExtractor(t *testing.T) {
	path := writeFile(t, "rows.csv", []byte("rut;nombre;monto\n12.345.678-5; Juan ;1000\n;;\n"))

	doc, err := NewCSVExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, parser.Table{{"rut", "nombre", "monto"}, {"12.345.678-5", "Juan", "1000"}}, doc.Tables[0])
}

func TestForPath(t *testing.T) {
	cfg := common.ExtractConfig{Pdftotext: "pdftotext"}
	cases := map[string]any{
		"a.PDF":  &PDFExtractor{},
		"b.xlsx": &XLSXExtractor{},
		"c.htm":  &HTMLExtractor{},
		"d.html": &HTMLExtractor{},
		"e.txt":  &TextExtractor{},
		"f.csv":  &CSVExtractor{},
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			got, err := ForPath(path, cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, want, got)
		})
	}

	_, err := ForPath("photo.heic", cfg, nil)
	require.Error(t, err)
	assert.True(t, common.HasCode(err, common.CodeUnsupportedFormat))
}

func TestNormalize(t *testing.T) {
	in := "A\t\tB   C\r\n\r\n\r\n\r\nD\n-----\nE  "
	assert.Equal(t, "A B C\n\nD\n\nE", Normalize(in))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "01/03/2024", Normalize(" 01/03/2024 "))
}
