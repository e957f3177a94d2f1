package ingest

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"gl-reconciler/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadSQLite reads the SQL-side ledger extract directly from a SQLite
// database table with the columns date, account, description, amount,
// reference. Rows with unparseable values are excluded with a reason,
// matching the CSV loader's behavior.
func LoadSQLite(dbPath, table string) (*domain.Dataset, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql extract %s: %w", dbPath, err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT date, account, description, amount, reference FROM %s ORDER BY rowid", table)
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	ds := &domain.Dataset{Source: domain.SourceSQL}
	row := 0
	for rows.Next() {
		row++
		var dateStr, account, description, amountStr, reference sql.NullString
		if err := rows.Scan(&dateStr, &account, &description, &amountStr, &reference); err != nil {
			ds.Excluded = append(ds.Excluded, domain.RowError{Row: row, Reason: err.Error()})
			continue
		}

		rec, rowErr := parseSQLRow(dateStr, account, description, amountStr, reference)
		if rowErr != "" {
			ds.Excluded = append(ds.Excluded, domain.RowError{Row: row, Reason: rowErr})
			continue
		}
		ds.Records = append(ds.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	return ds, nil
}

func parseSQLRow(dateStr, account, description, amountStr, reference sql.NullString) (domain.Record, string) {
	if !dateStr.Valid || dateStr.String == "" {
		return domain.Record{}, "missing date"
	}
	date, err := time.Parse(time.DateOnly, dateStr.String)
	if err != nil {
		return domain.Record{}, fmt.Sprintf("unparseable date %q", dateStr.String)
	}

	if !amountStr.Valid || amountStr.String == "" {
		return domain.Record{}, "missing amount"
	}
	amount, err := decimal.NewFromString(amountStr.String)
	if err != nil {
		return domain.Record{}, fmt.Sprintf("unparseable amount %q", amountStr.String)
	}

	if !reference.Valid || reference.String == "" {
		return domain.Record{}, "missing reference"
	}

	return domain.Record{
		Date:        date,
		Account:     account.String,
		Description: description.String,
		Amount:      amount,
		Reference:   reference.String,
	}, ""
}
