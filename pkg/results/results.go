package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/trellis-ml/trellis/pkg/cmp"
)

var ErrMalformedTable = errors.New("malformed transform output table")

// Row is one output record of a batch transform with attribution output on:
// the prediction, the base (expected) value, and one attribution value per
// input feature.
type Row struct {
	Prediction   float64
	BaseValue    float64
	Attributions []float64
}

func (r Row) Equal(o Row) bool {
	return r.Prediction == o.Prediction &&
		r.BaseValue == o.BaseValue &&
		cmp.SliceEq(r.Attributions, o.Attributions)
}

// Table is a parsed transform output.
type Table struct {
	Rows []Row
}

func (t Table) Equal(o Table) bool {
	return cmp.SliceEqWith(t.Rows, o.Rows, Row.Equal)
}

// Features is the number of attribution columns. Zero for an empty table.
func (t Table) Features() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Attributions)
}

// Parse reads a transform output table.
//
// The format is fixed by the serving container: comma separated,
// no header, columns [prediction, base_value, attribution...].
// Every row has the same column count.
func Parse(stream io.Reader) (Table, error) {
	cr := csv.NewReader(stream)
	// FieldsPerRecord defaults to the width of the first row,
	// so ragged tables fail in csv already.

	rows := []Row{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("%w: %s", ErrMalformedTable, err)
		}

		if len(record) < 2 {
			return Table{}, fmt.Errorf(
				"%w: row %d has %d columns, need at least prediction and base value",
				ErrMalformedTable, len(rows)+1, len(record),
			)
		}

		values := make([]float64, len(record))
		for nth, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return Table{}, fmt.Errorf(
					"%w: row %d column %d: %s", ErrMalformedTable, len(rows)+1, nth+1, err,
				)
			}
			values[nth] = v
		}

		rows = append(rows, Row{
			Prediction:   values[0],
			BaseValue:    values[1],
			Attributions: values[2:],
		})
	}

	return Table{Rows: rows}, nil
}

// Render writes the table with aligned columns.
func (t Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := "PREDICTION\tBASE_VALUE"
	for nth := 0; nth < t.Features(); nth++ {
		header += fmt.Sprintf("\tATTR_%d", nth)
	}
	if _, err := fmt.Fprintln(tw, header); err != nil {
		return err
	}

	for _, row := range t.Rows {
		line := fmt.Sprintf("%g\t%g", row.Prediction, row.BaseValue)
		for _, a := range row.Attributions {
			line += fmt.Sprintf("\t%g", a)
		}
		if _, err := fmt.Fprintln(tw, line); err != nil {
			return err
		}
	}

	return tw.Flush()
}
