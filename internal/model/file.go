package model

import "time"

// FileRecord is the metadata of one file attached to an idea.
// Records are immutable once stored; the bytes live in object storage under ObjectKey().
type FileRecord struct {
	ID          int64     `json:"id"`
	IdeaID      int64     `json:"idea_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	CreatedAt   time.Time `json:"created_at"`

	// Body is only populated by reads that fetch content; it is never persisted.
	Body []byte `json:"-"`
}

// ObjectKey returns the object storage key of the record: "<idea id>/<file id>".
func (f FileRecord) ObjectKey() string {
	return ObjectKey(f.IdeaID, f.ID)
}
