// Package exceldata parses uploaded spreadsheets and persists their rows for
// the ingestion server: required-column validation, duplicate detection,
// paginated listing, and bulk deletion.
package exceldata
