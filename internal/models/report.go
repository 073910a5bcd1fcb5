package models

import (
	"time"
)

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusResolved ReportStatus = "RESOLVED"
)

// Report flags a single thread or reply for moderation. Exactly one of
// ThreadID/ReplyID is set; the service layer only constructs reports through
// a two-case target type, so the storage row can never hold both or neither.
type Report struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	ReporterID uint         `gorm:"not null;index" json:"reporter_id"`
	Reporter   User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reporter"`
	ThreadID   *uint        `gorm:"index" json:"thread_id"`
	Thread     *Thread      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"thread"`
	ReplyID    *uint        `gorm:"index" json:"reply_id"`
	Reply      *Reply       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reply"`
	Reason     string       `gorm:"type:text;not null" json:"reason"`
	Status     ReportStatus `gorm:"size:8;default:'PENDING';index" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}
