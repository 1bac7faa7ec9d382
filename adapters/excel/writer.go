package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"medstat/domain/dataset"
	"medstat/internal/errors"
)

const exportSheet = "Sheet1"

// Writer exports a Dataset as CSV or XLSX
type Writer struct {
	fileType FileType
}

func NewWriter(fileType FileType) *Writer {
	return &Writer{fileType: fileType}
}

// WriteFile exports ds to path, picking the format from the extension
func WriteFile(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := NewWriter(DetectFileType(path)).Write(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the header row followed by every record in column order
func (w *Writer) Write(dst io.Writer, ds *dataset.Dataset) error {
	if ds == nil {
		return errors.InvalidInput("nothing to export")
	}
	if err := ds.Validate(); err != nil {
		return errors.Wrap(err, "cannot export dataset")
	}
	if w.fileType == FileTypeXLSX {
		return writeXLSX(dst, ds)
	}
	return writeCSV(dst, ds)
}

func writeCSV(dst io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(dst)
	if err := cw.Write(ds.ColumnNames()); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	row := make([]string, ds.ColumnCount())
	for _, rec := range ds.Rows {
		for j, c := range ds.Columns {
			row[j] = rec[c.Name]
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write CSV row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush CSV")
}

// writeXLSX stores numeric columns as numbers so spreadsheets can compute
// with them; missing values stay empty cells.
func writeXLSX(dst io.Writer, ds *dataset.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, ds.ColumnCount())
	for j, name := range ds.ColumnNames() {
		header[j] = name
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write XLSX header")
	}

	for i, rec := range ds.Rows {
		cells := make([]interface{}, ds.ColumnCount())
		for j, c := range ds.Columns {
			v := rec[c.Name]
			if n, ok := dataset.ParseNumber(v); ok && c.IsNumeric() {
				cells[j] = n
			} else {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "address XLSX row")
		}
		if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return errors.Wrap(err, fmt.Sprintf("write XLSX row %d", i+1))
		}
	}

	if err := f.Write(dst); err != nil {
		return errors.Wrap(err, "write XLSX file")
	}
	return nil
}
