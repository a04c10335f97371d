package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrEmptyDataset = errors.New("dataset is empty")

// Dataset holds a numeric table split into feature and target matrices.
type Dataset struct {
	X *mat.Dense
	Y *mat.Dense

	FeatureNames []string
	TargetNames  []string
}

func (d *Dataset) Rows() int {
	rows, _ := d.X.Dims()
	return rows
}

func (d *Dataset) Features() int {
	_, cols := d.X.Dims()
	return cols
}

func (d *Dataset) Targets() int {
	_, cols := d.Y.Dims()
	return cols
}

// LoadCSV reads a numeric CSV where the last targetCols columns are
// targets and the rest are features. A leading header row is detected by
// its first cell failing to parse as a number.
func LoadCSV(path string, targetCols int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, targetCols)
}

func ReadCSV(in io.Reader, targetCols int) (*Dataset, error) {
	if targetCols <= 0 {
		return nil, fmt.Errorf("target column count must be > 0: got %d", targetCols)
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var header []string
	var data [][]float64
	if row, ok := parseRecord(first); ok {
		data = append(data, row)
	} else {
		header = trimAll(first)
	}

	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex+1, err)
		}
		if blankRecord(record) {
			continue
		}
		row, ok := parseRecord(record)
		if !ok {
			return nil, fmt.Errorf("non-numeric value in csv row %d", rowIndex+1)
		}
		if len(data) > 0 && len(row) != len(data[0]) {
			return nil, fmt.Errorf("ragged csv row %d: %d columns, want %d", rowIndex+1, len(row), len(data[0]))
		}
		data = append(data, row)
		rowIndex++
	}

	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}
	width := len(data[0])
	if targetCols >= width {
		return nil, fmt.Errorf("need at least one feature column: %d columns, %d targets", width, targetCols)
	}

	featureCols := width - targetCols
	X := mat.NewDense(len(data), featureCols, nil)
	Y := mat.NewDense(len(data), targetCols, nil)
	for r, row := range data {
		for c := 0; c < featureCols; c++ {
			X.Set(r, c, row[c])
		}
		for c := 0; c < targetCols; c++ {
			Y.Set(r, c, row[featureCols+c])
		}
	}

	ds := &Dataset{X: X, Y: Y}
	if len(header) == width {
		ds.FeatureNames = header[:featureCols]
		ds.TargetNames = header[featureCols:]
	}
	return ds, nil
}

// Split partitions the rows into a leading training block and trailing
// test block by fraction, without shuffling. Ordering is the caller's
// concern.
func (d *Dataset) Split(trainFraction float64) (train, test *Dataset, err error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, fmt.Errorf("train fraction must be in (0,1): got %g", trainFraction)
	}
	rows := d.Rows()
	cut := int(float64(rows) * trainFraction)
	if cut == 0 || cut == rows {
		return nil, nil, fmt.Errorf("split leaves an empty partition: %d of %d rows", cut, rows)
	}
	return d.slice(0, cut), d.slice(cut, rows), nil
}

func (d *Dataset) slice(from, to int) *Dataset {
	return &Dataset{
		X:            mat.DenseCopyOf(d.X.Slice(from, to, 0, d.Features())),
		Y:            mat.DenseCopyOf(d.Y.Slice(from, to, 0, d.Targets())),
		FeatureNames: d.FeatureNames,
		TargetNames:  d.TargetNames,
	}
}

func parseRecord(record []string) ([]float64, bool) {
	out := make([]float64, 0, len(record))
	for _, raw := range record {
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, field := range record {
		out[i] = strings.TrimSpace(field)
	}
	return out
}
