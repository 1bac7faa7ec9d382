package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medstat/domain/dataset"
	"medstat/internal/errors"
)

const trialCSV = "\ufeffid,arm,age,outcome\n1,drug,54,1\n2,placebo,61,0\n,,,\n3,drug,,1\n"

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, FileTypeCSV, DetectFileType("data.csv"))
	assert.Equal(t, FileTypeXLSX, DetectFileType("Data.XLSX"))
	assert.Equal(t, FileTypeCSV, DetectFileType("noext"))

	ft, ok := ParseFileType("excel")
	assert.True(t, ok)
	assert.Equal(t, FileTypeXLSX, ft)
	_, ok = ParseFileType("parquet")
	assert.False(t, ok)
}

func TestDataReader_CSV(t *testing.T) {
	ds, err := NewDataReader("trial.csv").ReadFrom("trial.csv", strings.NewReader(trialCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "arm", "age", "outcome"}, ds.ColumnNames())
	assert.Equal(t, 3, ds.RowCount(), "blank row skipped")
	assert.Equal(t, dataset.SourceFile, ds.Source)

	age, _ := ds.Column("age")
	assert.Equal(t, dataset.TypeNumeric, age.Type)
	assert.Equal(t, 1, age.Missing)
	arm, _ := ds.Column("arm")
	assert.Equal(t, dataset.TypeCategorical, arm.Type)
}

func TestDataReader_MaxRows(t *testing.T) {
	r := NewDataReader("trial.csv").WithConfig(ReaderConfig{MaxRows: 1, SkipBlankRows: true})
	ds, err := r.ReadFrom("trial.csv", strings.NewReader(trialCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, ds.RowCount())
}

func TestDataReader_Errors(t *testing.T) {
	_, err := NewDataReader("x.csv").ReadFrom("x.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = NewDataReader("x.csv").ReadFrom("x.csv", strings.NewReader("a,a\n1,2\n"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadDataset()
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	_, err = NewDataReader("x.xlsx").ReadFrom("x.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestWriter_CSVRoundTrip(t *testing.T) {
	ds, err := dataset.New("t", dataset.SourceManual, []string{"id", "note"}, [][]string{
		{"1", "has, comma"},
		{"2", ""},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewWriter(FileTypeCSV).Write(&buf, ds))
	assert.Equal(t, "id,note\n1,\"has, comma\"\n2,\n", buf.String())
}

func TestWriter_XLSX(t *testing.T) {
	ds, err := dataset.New("t", dataset.SourceManual, []string{"id", "arm", "score"}, [][]string{
		{"1", "drug", "3.5"},
		{"2", "placebo", ""},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(path, ds))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "arm", "score"}, rows[0])
	assert.Equal(t, []string{"1", "drug", "3.5"}, rows[1])

	back, err := NewDataReader(path).ReadDataset()
	require.NoError(t, err)
	assert.Equal(t, ds.ColumnNames(), back.ColumnNames())
	assert.Equal(t, "placebo", back.Value(1, "arm"))
	assert.Equal(t, "", back.Value(1, "score"))
}

func TestWriter_NilDataset(t *testing.T) {
	err := NewWriter(FileTypeCSV).Write(os.Stdout, nil)
	require.Error(t, err)
}

func TestWriter_RejectsDuplicateColumns(t *testing.T) {
	ds := &dataset.Dataset{
		Columns: []dataset.Column{{Name: "age"}, {Name: "age"}},
		Rows:    []dataset.Record{{"age": "40"}},
	}
	var buf bytes.Buffer
	err := NewWriter(FileTypeCSV).Write(&buf, ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
	assert.Zero(t, buf.Len())
}
