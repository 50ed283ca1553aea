// Package export renders run artifacts for external consumers: deduction
// CSVs, chat transcripts, and audit rows.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentictax/taxpilot/internal/model"
)

// csvHeader is the fixed deduction export column set.
var csvHeader = []string{"Category", "Amount", "Description", "Confidence%", "Source"}

// WriteDeductionsCSV writes one row per deduction, preserving order.
func WriteDeductionsCSV(w io.Writer, deductions []model.Deduction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, d := range deductions {
		row := []string{
			d.Category,
			strconv.FormatFloat(d.Amount, 'f', 2, 64),
			d.Description,
			strconv.Itoa(int(d.Confidence*100 + 0.5)),
			d.SourceRef,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write deduction row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadDeductionsCSV parses a deduction export back into records. Only the
// exported fields survive the round trip.
func ReadDeductionsCSV(r io.Reader) ([]model.Deduction, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(csvHeader) || !strings.EqualFold(header[0], csvHeader[0]) {
		return nil, fmt.Errorf("unexpected header: %v", header)
	}

	var deductions []model.Deduction
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		amount, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", row[1], err)
		}
		confidencePct, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("invalid confidence %q: %w", row[3], err)
		}

		deductions = append(deductions, model.Deduction{
			Category:    row[0],
			Amount:      amount,
			Description: row[2],
			Confidence:  float64(confidencePct) / 100,
			SourceRef:   row[4],
		})
	}
	return deductions, nil
}
