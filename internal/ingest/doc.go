// Package ingest is the HTTP client for the ingestion service: the multipart
// upload transport used by the queue manager, plus the companion data listing
// and deletion surface.
package ingest
