// Package sqlite mirrors the record store into a SQLite database for ad hoc
// SQL access.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ukaji3/finstruct-go/pkg/finstruct/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS financial_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	sheet_name TEXT NOT NULL,
	financial_type TEXT NOT NULL DEFAULT '',
	item_code TEXT NOT NULL,
	trade TEXT NOT NULL,
	is_category_header INTEGER NOT NULL,
	amount REAL NOT NULL,
	vals TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_period ON financial_records(year, month);
CREATE INDEX IF NOT EXISTS idx_records_sheet ON financial_records(sheet_name, financial_type);
CREATE INDEX IF NOT EXISTS idx_records_code ON financial_records(item_code);

CREATE TABLE IF NOT EXISTS project_info (
	source_path TEXT PRIMARY KEY,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	company TEXT NOT NULL,
	project_code TEXT NOT NULL,
	project_name TEXT NOT NULL,
	report_date TEXT,
	start_date TEXT,
	complete_date TEXT,
	target_complete_date TEXT
);
CREATE INDEX IF NOT EXISTS idx_projects_code ON project_info(project_code);
`

// Stats counts the rows written by Export.
type Stats struct {
	Records  int
	Projects int
}

// Export replaces the contents of the database at path with records and
// projects in a single transaction. The vals column holds the record's
// full value set as a JSON object in column order.
func Export(ctx context.Context, path string, records []models.FinancialRecord, projects []models.ProjectInfo) (Stats, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		return Stats{}, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return Stats{}, fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats, err := write(ctx, tx, records, projects)
	if err != nil {
		return Stats{}, err
	}
	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("failed to commit: %w", err)
	}
	return stats, nil
}

func write(ctx context.Context, tx *sql.Tx, records []models.FinancialRecord, projects []models.ProjectInfo) (Stats, error) {
	for _, table := range []string{"financial_records", "project_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Stats{}, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO financial_records
			(year, month, sheet_name, financial_type, item_code, trade, is_category_header, amount, vals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer recStmt.Close()

	for _, rec := range records {
		vals, err := json.Marshal(rec.Values)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to marshal values of %s/%s: %w", rec.SheetName, rec.ItemCode, err)
		}
		if _, err := recStmt.ExecContext(ctx,
			rec.Year, rec.Month, string(rec.SheetName), rec.FinancialType, rec.ItemCode,
			rec.Trade, rec.IsCategoryHeader, rec.Amount(), string(vals),
		); err != nil {
			return Stats{}, fmt.Errorf("failed to insert record: %w", err)
		}
	}

	projStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO project_info
			(source_path, year, month, company, project_code, project_name,
			 report_date, start_date, complete_date, target_complete_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to prepare project insert: %w", err)
	}
	defer projStmt.Close()

	for _, p := range projects {
		if _, err := projStmt.ExecContext(ctx,
			p.SourcePath, p.Year, p.Month, p.Company, p.ProjectCode, p.ProjectName,
			dateValue(p.ReportDate), dateValue(p.StartDate),
			dateValue(p.CompleteDate), dateValue(p.TargetCompleteDate),
		); err != nil {
			return Stats{}, fmt.Errorf("failed to insert project %s: %w", p.SourcePath, err)
		}
	}

	return Stats{Records: len(records), Projects: len(projects)}, nil
}

func dateValue(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
