package sitesnap

import (
	"errors"
	"fmt"

	"github.com/alnah/go-sitesnap/internal/worklist"
)

// WorklistOptions selects the sheet and the core column headers.
type WorklistOptions struct {
	Sheet   string // xlsx only; default "sheet1", else the first sheet
	Columns Labels // header names; empty fields use DefaultLabels
}

// ReadWorklist loads records from an .xlsx or .csv file. The header names
// of the core columns become the entry labels in page documents; other
// columns pass through in order.
func ReadWorklist(path string, opts WorklistOptions) ([]Record, error) {
	cols := opts.Columns.WithDefaults()
	rows, err := worklist.Read(path, worklist.Options{
		Sheet: opts.Sheet,
		Columns: worklist.Columns{
			Index:   cols.Index,
			Name:    cols.Name,
			Address: cols.Address,
		},
	})
	if err != nil {
		if errors.Is(err, worklist.ErrMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedWorklist, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadWorklist, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			Index:   row.Index,
			Name:    row.Name,
			Address: row.Address,
			Labels:  cols,
		}
		for _, c := range row.Extra {
			rec.Extra = append(rec.Extra, Field{Label: c.Header, Value: c.Value})
		}
		records = append(records, rec)
	}
	return records, nil
}
