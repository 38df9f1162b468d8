package models

import "time"

// IndexVersion is written into every persisted index.
const IndexVersion = "2"

// EntryStatus is the outcome of the last extraction of a source file.
type EntryStatus string

const (
	StatusOK     EntryStatus = "ok"
	StatusFailed EntryStatus = "failed"
)

// Fingerprint identifies the content of a source file.
type Fingerprint struct {
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// ModTime is the modification time in Unix nanoseconds.
	ModTime int64 `json:"mod_time"`
	// Hash is the hex xxhash64 of the file content.
	Hash string `json:"hash"`
}

// SourceIndexEntry is the bookkeeping kept per source workbook.
type SourceIndexEntry struct {
	// Path is relative to the source root, slash separated.
	Path  string `json:"path"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	// ContentFingerprint decides whether the cached outputs are still valid.
	ContentFingerprint Fingerprint `json:"content_fingerprint"`
	// ExtractedRecordCount is the number of records in the flattened outputs.
	ExtractedRecordCount int `json:"extracted_record_count"`
	// IssueCount is the number of row issues raised by the last extraction.
	IssueCount      int         `json:"issue_count"`
	LastExtractedAt time.Time   `json:"last_extracted_at"`
	Status          EntryStatus `json:"status"`
	// Error is the failure reason when Status is failed.
	Error string `json:"error,omitempty"`
	// Outputs lists the flattened output files relative to the index dir.
	Outputs []string `json:"outputs,omitempty"`
}

// Index is the combined index persisted by the indexer.
type Index struct {
	Version     string             `json:"version"`
	SourceRoot  string             `json:"source_root"`
	GeneratedAt time.Time          `json:"generated_at"`
	RecordCount int                `json:"record_count"`
	Files       []SourceIndexEntry `json:"files"`
}

// FileFailure describes one source file that could not be extracted.
type FileFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IndexReport summarizes one reindex run.
type IndexReport struct {
	RunID string `json:"run_id"`
	// Scanned counts every source file seen.
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Skipped counts files whose cached outputs were reused.
	Skipped int `json:"skipped"`
	// Reextracted counts files opened and extracted in this run.
	Reextracted int `json:"reextracted"`
	// Removed counts index entries dropped because the source disappeared.
	Removed  int           `json:"removed"`
	Records  int           `json:"records"`
	Issues   int           `json:"issues"`
	Failures []FileFailure `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}
