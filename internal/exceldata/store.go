package exceldata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS excel_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    srocode TEXT,
    internaldocumentnumber TEXT,
    docno TEXT,
    docname TEXT,
    registrationdate TEXT,
    sroname TEXT,
    micrno TEXT,
    bank_type TEXT,
    party_code TEXT,
    sellerparty TEXT,
    purchaserparty TEXT,
    propertydescription TEXT,
    areaname TEXT,
    consideration_amt TEXT,
    marketvalue TEXT,
    dateofexecution TEXT,
    stampdutypaid TEXT,
    registrationfees TEXT,
    status TEXT,
    file_name TEXT NOT NULL,
    upload_date TEXT NOT NULL,
    data_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_excel_data_keys
    ON excel_data (docno, internaldocumentnumber, registrationdate, sellerparty, purchaserparty);
CREATE INDEX IF NOT EXISTS idx_excel_data_hash ON excel_data (data_hash)`

// sortableColumns whitelists the columns List accepts for ordering.
var sortableColumns = map[string]struct{}{
	"id":                     {},
	"docno":                  {},
	"docname":                {},
	"registrationdate":       {},
	"sroname":                {},
	"sellerparty":            {},
	"purchaserparty":         {},
	"areaname":               {},
	"consideration_amt":      {},
	"marketvalue":            {},
	"upload_date":            {},
	"file_name":              {},
	"internaldocumentnumber": {},
	"status":                 {},
}

// Store persists ingested spreadsheet rows in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ingested-data database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create excel_data schema: %w", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// FindDuplicate reports whether any row of the candidate upload already
// exists, matching on the key columns. It returns the file name of the prior
// upload that contains the first matching row.
func (s *Store) FindDuplicate(ctx context.Context, rows []Row) (string, bool, error) {
	const query = `SELECT file_name FROM excel_data
        WHERE docno = ? AND internaldocumentnumber = ? AND registrationdate = ?
          AND sellerparty = ? AND purchaserparty = ?
        LIMIT 1`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("prepare duplicate check: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		var fileName string
		err := stmt.QueryRowContext(ctx,
			row["docno"],
			row["internaldocumentnumber"],
			row["registrationdate"],
			row["sellerparty"],
			row["purchaserparty"],
		).Scan(&fileName)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("duplicate check: %w", err)
		}
		return fileName, true, nil
	}
	return "", false, nil
}

// InsertRows stores all rows of one upload in a single transaction.
func (s *Store) InsertRows(ctx context.Context, rows []Row, fileName string, uploadedAt time.Time, dataHash string) (int64, error) {
	columns := append(append([]string{}, RequiredColumns...), "file_name", "upload_date", "data_hash")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO excel_data (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	uploadDate := uploadedAt.UTC().Format(time.RFC3339)
	var inserted int64
	for _, row := range rows {
		args := make([]any, 0, len(columns))
		for _, column := range RequiredColumns {
			args = append(args, row[column])
		}
		args = append(args, fileName, uploadDate, dataHash)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// ListParams select a page of ingested rows.
type ListParams struct {
	Page    int
	PerPage int
	SortBy  string
	Order   string
}

// ListResult is one page of ingested rows plus paging metadata.
type ListResult struct {
	Rows       []map[string]string
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// List returns one page of ingested rows ordered by a whitelisted column.
// Out-of-range paging values and unknown sort columns fall back to defaults.
func (s *Store) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 500 {
		params.PerPage = 50
	}
	if _, ok := sortableColumns[params.SortBy]; !ok {
		params.SortBy = "id"
	}
	order := "ASC"
	if strings.EqualFold(params.Order, "desc") {
		order = "DESC"
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM excel_data`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	columns := append(append([]string{"id"}, RequiredColumns...), "file_name", "upload_date")
	query := fmt.Sprintf(
		"SELECT %s FROM excel_data ORDER BY %s %s LIMIT ? OFFSET ?",
		strings.Join(columns, ", "),
		params.SortBy,
		order,
	)

	offset := (params.Page - 1) * params.PerPage
	dbRows, err := s.db.QueryContext(ctx, query, params.PerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer dbRows.Close()

	result := &ListResult{
		Rows:    make([]map[string]string, 0, params.PerPage),
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	values := make([]sql.NullString, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for dbRows.Next() {
		if err := dbRows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]string, len(columns))
		for i, column := range columns {
			row[column] = values[i].String
		}
		result.Rows = append(result.Rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	result.TotalPages = int((total + int64(params.PerPage) - 1) / int64(params.PerPage))
	return result, nil
}

// Count returns the number of ingested rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM excel_data`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return total, nil
}

// DeleteAll removes every ingested row and reports how many were deleted.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM excel_data`)
	if err != nil {
		return 0, fmt.Errorf("delete rows: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted rows: %w", err)
	}
	return deleted, nil
}
