package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"medstat/domain/dataset"
	"medstat/internal"
	"medstat/internal/errors"
)

// DataReader reads Excel and CSV files into a Dataset
type DataReader struct {
	filePath string
	fileType FileType
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a reader that handles both Excel and CSV files,
// choosing the format from the file extension.
func NewDataReader(filePath string) *DataReader {
	return &DataReader{
		filePath: filePath,
		fileType: DetectFileType(filePath),
		config:   DefaultReaderConfig(),
		logger:   internal.DefaultLogger.Component("excel"),
	}
}

// WithConfig replaces the reader configuration
func (r *DataReader) WithConfig(cfg ReaderConfig) *DataReader {
	r.config = cfg
	return r
}

// ReadDataset reads the file at the reader's path
func (r *DataReader) ReadDataset() (*dataset.Dataset, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	f, err := os.Open(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(string(r.fileType)), r.filePath))
		}
		return nil, errors.Wrapf(err, "open %s", r.filePath)
	}
	defer f.Close()

	return r.ReadFrom(filepath.Base(r.filePath), f)
}

// ReadFrom reads tabular data from src using the reader's file type. name
// becomes the dataset name.
func (r *DataReader) ReadFrom(name string, src io.Reader) (*dataset.Dataset, error) {
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case FileTypeXLSX:
		rows, err = r.readExcelRows(src)
	default:
		rows, err = readCSVRows(src)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file has no header row", strings.ToUpper(string(r.fileType))))
	}

	ds, err := dataset.New(name, dataset.SourceFile, rows[0], r.dataRows(rows[1:]))
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	r.logger.Debug("%s file processed in %s (%d columns, %d rows)",
		strings.ToUpper(string(r.fileType)), time.Since(start), ds.ColumnCount(), ds.RowCount())
	return ds, nil
}

func (r *DataReader) dataRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if r.config.SkipBlankRows && blank(row) {
			continue
		}
		if r.config.MaxRows > 0 && len(out) >= r.config.MaxRows {
			break
		}
		out = append(out, row)
	}
	return out
}

// readExcelRows reads the configured sheet, or the first one
func (r *DataReader) readExcelRows(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to open Excel file: %w", err))
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("Excel file has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read sheet %s: %w", sheet, err))
	}
	return rows, nil
}

func readCSVRows(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read CSV file: %w", err))
	}
	// Strip a UTF-8 byte order mark left by spreadsheet exports.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
