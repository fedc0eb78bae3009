package e2e

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/chimera/internal/dataset"
	"github.com/hyperjump/chimera/internal/models"
)

// Header returns the dataset columns in the order the fixtures write them.
func Header() []string {
	cols := []string{
		dataset.ColVideoID, dataset.ColPlatform, dataset.ColCategory, dataset.ColTitle,
		dataset.ColCoverDescription, dataset.ColHashtags, dataset.ColPostingHour,
	}
	for _, m := range models.Metrics {
		for _, o := range models.Offsets {
			cols = append(cols, models.ColumnName(m, o))
		}
	}
	return cols
}

// Rows returns the corpus as string rows, header first.
func (c *Corpus) Rows() [][]string {
	rows := make([][]string, 0, len(c.Videos)+1)
	rows = append(rows, Header())
	for i, v := range c.Videos {
		row := []string{
			v.VideoID, v.Platform, v.Category, v.Title,
			v.CoverDescription, v.Hashtags, strconv.Itoa(v.PostingHour),
		}
		for _, m := range models.Metrics {
			for _, o := range models.Offsets {
				row = append(row, strconv.FormatFloat(c.Records[i].Value(m, o), 'f', -1, 64))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the corpus to path as CSV.
func (c *Corpus) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(c.Rows()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

// WriteXLSX writes the corpus to path as a single-sheet workbook.
func (c *Corpus) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range c.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.SaveAs(path)
}
