package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of an upload record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusError marks the decode-fallback sentinel record. Dispatch never
	// produces it and the guard in Dispatch never accepts it.
	StatusError Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Label returns the user-facing form of a status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUploading:
		return "Uploading"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusError:
		return "Error"
	default:
		return string(s)
	}
}

// Selection describes one file chosen for upload: display name, byte size,
// and the path the bytes are read from at dispatch time.
type Selection struct {
	Name string
	Size int64
	Path string
}

// UploadRecord tracks one file's upload lifecycle. FileName, FileSizeBytes,
// SourcePath, and AddedAt are immutable after creation.
type UploadRecord struct {
	ID            string
	FileName      string
	FileSizeBytes int64
	SourcePath    string
	Progress      float64
	Status        Status
	ErrorMessage  string
	AddedAt       time.Time
}

// NewRecord builds a pending record for a selection. All records of one
// batch share the creation timestamp so stored order remains the intra-batch
// order after a timestamp sort.
func NewRecord(sel Selection, addedAt time.Time) *UploadRecord {
	size := sel.Size
	if size < 0 {
		size = 0
	}
	return &UploadRecord{
		ID:            uuid.NewString(),
		FileName:      sel.Name,
		FileSizeBytes: size,
		SourcePath:    sel.Path,
		Progress:      0,
		Status:        StatusPending,
		AddedAt:       addedAt.UTC(),
	}
}

// SetUploading marks the record as in flight.
func (r *UploadRecord) SetUploading() {
	r.Status = StatusUploading
}

// SetCompleted marks the record as uploaded, pinning progress to 1.0 and
// clearing any prior error.
func (r *UploadRecord) SetCompleted() {
	r.Status = StatusCompleted
	r.Progress = 1.0
	r.ErrorMessage = ""
}

// SetFailed marks the record as failed with the given message. Progress is
// left at its last known value.
func (r *UploadRecord) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
}

// SetPending returns the record to the dispatchable state, clearing progress
// and any prior error.
func (r *UploadRecord) SetPending() {
	r.Status = StatusPending
	r.Progress = 0
	r.ErrorMessage = ""
}

// Clone returns a copy of the record.
func (r *UploadRecord) Clone() *UploadRecord {
	cp := *r
	return &cp
}
