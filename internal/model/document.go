package model

import "time"

// DocumentStatus tracks how far a document has progressed through the
// pipeline. Status only ever moves forward.
type DocumentStatus string

// Document status constants.
const (
	DocStatusUploaded   DocumentStatus = "uploaded"
	DocStatusProcessing DocumentStatus = "processing"
	DocStatusVerified   DocumentStatus = "verified"
)

var docStatusRank = map[DocumentStatus]int{
	DocStatusUploaded:   0,
	DocStatusProcessing: 1,
	DocStatusVerified:   2,
}

// CanAdvanceTo reports whether next is a legal forward move from s.
func (s DocumentStatus) CanAdvanceTo(next DocumentStatus) bool {
	from, ok := docStatusRank[s]
	if !ok {
		return false
	}
	to, ok := docStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Document represents one uploaded or synthetic source file.
type Document struct {
	UploadedAt time.Time
	ID         string
	Name       string
	Type       string // classification label, e.g. "1099-NEC"
	Status     DocumentStatus
	Confidence float64 // 0 when no classification confidence is available
}
