// Package server exposes the ingestion HTTP API: spreadsheet upload with
// duplicate detection, paginated listing of ingested rows, and bulk deletion.
// A file lock prevents two server instances from sharing one database.
package server
