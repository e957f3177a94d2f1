// Package ingest loads ledger datasets from CSV files and SQLite extracts.
//
// Malformed rows are excluded, not fatal: each one is recorded on the
// returned Dataset with its row number and reason, and loading continues.
// Only an unreadable file or a wrong header aborts the load.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gl-reconciler/internal/domain"
)

// ErrBadHeader is returned when an input file does not carry the expected
// five-column ledger schema.
var ErrBadHeader = errors.New("unexpected header: want Date,Account,Description,Amount,Reference")

var expectedHeader = []string{"date", "account", "description", "amount", "reference"}

// LoadCSV reads a ledger extract from a CSV file.
func LoadCSV(path string, source domain.Source) (*domain.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s extract %s: %w", source, path, err)
	}
	defer file.Close()

	ds, err := LoadCSVReader(file, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s extract %s: %w", source, path, err)
	}
	return ds, nil
}

// LoadCSVReader reads a ledger extract from an already open reader. The
// header row is validated once; each data row then maps onto a Record.
func LoadCSVReader(r io.Reader, source domain.Source) (*domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row length checked per-row so one short row is not fatal

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	ds := &domain.Dataset{Source: source}
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			// Only a malformed row is recoverable. Anything else comes from
			// the underlying reader and would recur forever, so it aborts
			// the load.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				ds.Excluded = append(ds.Excluded, domain.RowError{Row: row, Reason: err.Error()})
				continue
			}
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		rec, rowErr := parseRow(fields)
		if rowErr != "" {
			ds.Excluded = append(ds.Excluded, domain.RowError{Row: row, Reason: rowErr})
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return ErrBadHeader
	}
	for i, col := range header {
		if strings.ToLower(strings.TrimSpace(col)) != expectedHeader[i] {
			return ErrBadHeader
		}
	}
	return nil
}

func parseRow(fields []string) (domain.Record, string) {
	if len(fields) != len(expectedHeader) {
		return domain.Record{}, fmt.Sprintf("expected %d fields, got %d", len(expectedHeader), len(fields))
	}

	dateStr := strings.TrimSpace(fields[0])
	if dateStr == "" {
		return domain.Record{}, "missing date"
	}
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return domain.Record{}, fmt.Sprintf("unparseable date %q", dateStr)
	}

	amountStr := strings.TrimSpace(fields[3])
	if amountStr == "" {
		return domain.Record{}, "missing amount"
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Record{}, fmt.Sprintf("unparseable amount %q", amountStr)
	}

	reference := strings.TrimSpace(fields[4])
	if reference == "" {
		return domain.Record{}, "missing reference"
	}

	return domain.Record{
		Date:        date,
		Account:     strings.TrimSpace(fields[1]),
		Description: fields[2],
		Amount:      amount,
		Reference:   reference,
	}, ""
}
