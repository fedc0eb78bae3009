package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a tabular file format the loader understands.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Extensions lists the file extensions Load accepts.
var Extensions = []string{".csv", ".tsv", ".xlsx"}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// readRows returns all rows of content, header included.
func readRows(content []byte, format Format) ([][]string, error) {
	switch format {
	case FormatCSV:
		return readDelimited(content, ',')
	case FormatTSV:
		return readDelimited(content, '\t')
	case FormatXLSX:
		return readExcel(content)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
}

func readDelimited(content []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse delimited: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// readExcel reads the first sheet of a workbook.
func readExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
