// Command consolidate queues spreadsheet files for upload to the
// consolidation service, inspects ingested data, and can run the ingestion
// server itself.
package main
