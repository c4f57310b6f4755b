package scribgen

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Record is one data-source row, position-aligned with the header row.
type Record []string

// DataReader loads an ordered sequence of records. The first record is the
// field-name header; every data row must have the same cardinality.
type DataReader interface {
	Read() ([]Record, error)
}

// CSVReader reads delimited text files.
type CSVReader struct {
	Path      string
	Separator rune
}

// Read returns the header row followed by the data rows. Rows whose
// cardinality differs from the header are a data-source error.
func (r *CSVReader) Read() ([]Record, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, NewDataSourceError(r.Path, 0, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	if r.Separator != 0 {
		cr.Comma = r.Separator
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, NewDataSourceError(r.Path, 0, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}

	if len(records) < 2 {
		return nil, NewDataSourceError(r.Path, len(records), nil)
	}
	return records, nil
}

// XLSXReader reads spreadsheet files. Sheet selects a worksheet by name;
// empty means the first sheet.
type XLSXReader struct {
	Path  string
	Sheet string
}

// Read returns the header row followed by the data rows. Spreadsheets drop
// trailing empty cells, so short rows are padded to the header width.
func (r *XLSXReader) Read() ([]Record, error) {
	f, err := excelize.OpenFile(r.Path)
	if err != nil {
		return nil, NewDataSourceError(r.Path, 0, err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, NewDataSourceError(r.Path, 0, err)
	}
	if len(rows) < 2 {
		return nil, NewDataSourceError(r.Path, len(rows), nil)
	}

	width := len(rows[0])
	records := make([]Record, len(rows))
	for i, row := range rows {
		rec := make(Record, width)
		copy(rec, row)
		records[i] = rec
	}
	return records, nil
}

// OpenDataSource selects a reader for path by file extension.
func OpenDataSource(path string, separator rune) DataReader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return &XLSXReader{Path: path}
	default:
		return &CSVReader{Path: path, Separator: separator}
	}
}

// NormalizeAmpersands returns rec with every raw '&' replaced by its entity
// form. The template stores text as markup, so a raw ampersand in a header
// name or cell value would otherwise corrupt the serialized document.
func NormalizeAmpersands(rec Record) Record {
	result := make(Record, len(rec))
	for i, cell := range rec {
		result[i] = strings.ReplaceAll(cell, "&", "&amp;")
	}
	return result
}

// DenormalizeAmpersands inverts NormalizeAmpersands.
func DenormalizeAmpersands(rec Record) Record {
	result := make(Record, len(rec))
	for i, cell := range rec {
		result[i] = strings.ReplaceAll(cell, "&amp;", "&")
	}
	return result
}
