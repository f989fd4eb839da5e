// Package dataset loads numeric csv files into the dense matrix form the
// threshold engine consumes.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/uyouii/regression-algorithms/common"
	"gonum.org/v1/gonum/mat"
)

type Table struct {
	Data    *mat.Dense
	Columns []string
}

// Load reads a csv file with a header row and all-numeric cells. Rows must
// have a uniform column count and at least one data row must exist.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header: %w", common.ErrorInvalidValue)
	}
	cols := len(header)

	var data []float64
	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rows+2, err)
		}
		if len(record) != cols {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d: %w",
				rows+2, cols, len(record), common.ErrorInvalidValue)
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse float at row %d col %d (%q): %w",
					rows+2, j+1, s, common.ErrorInvalidValue)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("no data rows: %w", common.ErrorInvalidValue)
	}

	return &Table{
		Data:    mat.NewDense(rows, cols, data),
		Columns: header,
	}, nil
}

// ColumnIndex resolves a column selector: a header name first, then a
// zero-based numeric index.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, col := range t.Columns {
		if col == name {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(name); err == nil {
		if idx < 0 || idx >= len(t.Columns) {
			return 0, fmt.Errorf("column index %d out of range [0,%d): %w",
				idx, len(t.Columns), common.ErrorInvalidValue)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("unknown column %q: %w", name, common.ErrorInvalidValue)
}
