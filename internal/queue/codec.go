package queue

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Sentinel field values identifying the decode-fallback record.
const (
	sentinelFileName = "Unknown File"
	sentinelMessage  = "Error parsing file data"
)

type encodedRecord struct {
	ID            string  `json:"id"`
	FileName      string  `json:"file_name"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	SourcePath    string  `json:"source_path"`
	Progress      float64 `json:"progress"`
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	AddedAt       string  `json:"added_at"`
}

// Encode serializes a record as a field-name-keyed JSON document.
func Encode(r *UploadRecord) (string, error) {
	payload := encodedRecord{
		ID:            r.ID,
		FileName:      r.FileName,
		FileSizeBytes: r.FileSizeBytes,
		SourcePath:    r.SourcePath,
		Progress:      r.Progress,
		Status:        string(r.Status),
		ErrorMessage:  r.ErrorMessage,
		AddedAt:       r.AddedAt.UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

// Decode deserializes a record, tolerating missing and malformed fields.
// Field-level problems fall back to defaults (empty name, zero size, zero
// progress, pending status, decode-time timestamp). Input that is not a JSON
// object at all yields the fixed sentinel record instead; use IsSentinel to
// recognize it.
func Decode(text string) *UploadRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Sentinel()
	}

	record := &UploadRecord{
		ID:            decodeString(fields["id"], ""),
		FileName:      decodeString(fields["file_name"], ""),
		FileSizeBytes: decodeInt64(fields["file_size_bytes"], 0),
		SourcePath:    decodeString(fields["source_path"], ""),
		Progress:      decodeFloat(fields["progress"], 0),
		ErrorMessage:  decodeString(fields["error_message"], ""),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.FileSizeBytes < 0 {
		record.FileSizeBytes = 0
	}
	record.Progress = clampProgress(record.Progress)

	status, ok := ParseStatus(decodeString(fields["status"], ""))
	if !ok {
		status = StatusPending
	}
	record.Status = status

	record.AddedAt = decodeTime(fields["added_at"])
	return record
}

// Sentinel returns the fixed fallback record produced when stored data
// cannot be decoded at all.
func Sentinel() *UploadRecord {
	return &UploadRecord{
		FileName:     sentinelFileName,
		Status:       StatusError,
		ErrorMessage: sentinelMessage,
		AddedAt:      time.Now().UTC(),
	}
}

// IsSentinel reports whether a record is the decode-fallback sentinel.
func IsSentinel(r *UploadRecord) bool {
	return r != nil && r.Status == StatusError && r.FileName == sentinelFileName
}

func decodeString(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}
	return value
}

func decodeInt64(raw json.RawMessage, fallback int64) int64 {
	if len(raw) == 0 {
		return fallback
	}
	var number int64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	// Tolerate floats and numeric strings from older writers.
	var float float64
	if err := json.Unmarshal(raw, &float); err == nil && !math.IsNaN(float) && !math.IsInf(float, 0) {
		return int64(float)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.ParseInt(text, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func decodeFloat(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 {
		return fallback
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return value
}

func decodeTime(raw json.RawMessage) time.Time {
	if text := decodeString(raw, ""); text != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return parsed
		}
	}
	return time.Now().UTC()
}

func clampProgress(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
