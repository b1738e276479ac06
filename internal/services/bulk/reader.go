package bulk

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/nuam/calificaciones/constants"
	"github.com/nuam/calificaciones/internal/common"
)

// sheet is a header row plus data rows keyed by lower-cased header.
type sheet struct {
	header []string
	rows   []map[string]string
}

// ReadRows reads a .csv or .xlsx upload. The first row is the header; every
// returned map holds all header keys, blank cells included.
func ReadRows(filename string, r io.Reader) ([]map[string]string, error) {
	s, err := readSheet(filename, r)
	if err != nil {
		return nil, err
	}
	return s.rows, nil
}

func readSheet(filename string, r io.Reader) (*sheet, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := constants.NormalizeExt(filepath.Ext(filename)); ext {
	case "csv":
		records, err = readCSV(r)
	case "xlsx":
		records, err = readXLSX(r)
	default:
		return nil, common.NewAppError(common.CodeUnsupportedFormat, fmt.Sprintf("unsupported upload extension %q", ext), common.ErrInvalidInput)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidInput, "unreadable upload", err)
	}
	if len(records) == 0 {
		return nil, common.InvalidInputErrorf("file has no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	s := &sheet{header: header, rows: make([]map[string]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		s.rows = append(s.rows, row)
	}
	return s, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		if data, err = charmap.Windows1252.NewDecoder().Bytes(data); err != nil {
			return nil, err
		}
	}
	cr := csv.NewReader(bytes.NewReader(data))
	header, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	// raw values keep date cells as serial numbers instead of locale formats
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func isBlank(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
