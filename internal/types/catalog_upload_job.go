package types

import (
	"time"

	"github.com/google/uuid"
)

type CatalogUploadStatus string

const (
	CatalogUploadPending    CatalogUploadStatus = "pending"
	CatalogUploadProcessing CatalogUploadStatus = "processing"
	CatalogUploadEmbedding  CatalogUploadStatus = "embedding"
	CatalogUploadCompleted  CatalogUploadStatus = "completed"
	CatalogUploadFailed     CatalogUploadStatus = "failed"
)

// CatalogUploadJob is an observability sink for batch imports and the
// batch-embedding state machine. Transitions are monotonic; the only
// recoverable re-entry is failed -> processing via a fresh job.
type CatalogUploadJob struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Filename     string              `gorm:"column:filename" json:"filename"`
	Status       CatalogUploadStatus `gorm:"column:status;not null;default:pending" json:"status"`
	Total        int                 `gorm:"column:total;default:0" json:"total"`
	Processed    int                 `gorm:"column:processed;default:0" json:"processed"`
	Embedded     int                 `gorm:"column:embedded;default:0" json:"embedded"`
	ErrorMessage string              `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time          `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time          `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (CatalogUploadJob) TableName() string { return "catalog_upload_job" }

var validTransitions = map[CatalogUploadStatus]map[CatalogUploadStatus]bool{
	CatalogUploadPending:    {CatalogUploadProcessing: true},
	CatalogUploadProcessing: {CatalogUploadEmbedding: true, CatalogUploadFailed: true},
	CatalogUploadEmbedding:  {CatalogUploadCompleted: true, CatalogUploadFailed: true},
	CatalogUploadFailed:     {CatalogUploadProcessing: true},
	CatalogUploadCompleted:  {},
}

func (j *CatalogUploadJob) CanTransition(to CatalogUploadStatus) bool {
	next, ok := validTransitions[j.Status]
	return ok && next[to]
}
