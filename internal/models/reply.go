package models

import (
	"html/template"
	"time"

	"campuslink/internal/utils"
)

type Reply struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ThreadID    uint      `gorm:"not null;index" json:"thread_id"`
	Thread      Thread    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"thread"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	RawContent  string    `gorm:"type:text;not null" json:"raw_content"`
	IsDeleted   bool      `gorm:"default:false;index" json:"is_deleted"`
	UpvoteCount int       `gorm:"default:0;index" json:"upvote_count"` // derived, equals len(Voters)
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Voters []User `gorm:"many2many:reply_voters" json:"-"`
}

// Content returns the displayable body, hiding soft-deleted replies.
func (r *Reply) Content() string {
	if r.IsDeleted {
		return DeletedPlaceholder
	}
	return r.RawContent
}

func (r *Reply) ContentHTML() template.HTML {
	return utils.RenderMarkdown(r.Content())
}
