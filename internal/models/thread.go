package models

import (
	"html/template"
	"time"

	"campuslink/internal/utils"
)

// DeletedPlaceholder replaces the body of soft-deleted content. The row and
// its raw content stay for aggregate and audit integrity.
const DeletedPlaceholder = "[This content has been removed]"

type Thread struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CategoryID  uint      `gorm:"not null;index:idx_threads_category_created" json:"category_id"`
	Category    Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title       string    `gorm:"not null;index" json:"title"`
	RawContent  string    `gorm:"type:text;not null" json:"raw_content"`
	IsDeleted   bool      `gorm:"default:false;index" json:"is_deleted"`
	IsLocked    bool      `gorm:"default:false;index" json:"is_locked"`
	UpvoteCount int       `gorm:"default:0;index" json:"upvote_count"` // derived, equals len(Voters)
	ReplyCount  int       `gorm:"default:0" json:"reply_count"`        // derived, equals non-deleted replies
	CreatedAt   time.Time `gorm:"index:idx_threads_category_created" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tags     []Tag     `gorm:"many2many:thread_tags" json:"tags"`
	Trigrams []Trigram `gorm:"many2many:thread_trigrams" json:"-"`
	Voters   []User    `gorm:"many2many:thread_voters" json:"-"`
}

// Content returns the displayable body, hiding soft-deleted threads.
func (t *Thread) Content() string {
	if t.IsDeleted {
		return DeletedPlaceholder
	}
	return t.RawContent
}

// ContentHTML renders the body as sanitized HTML. Content is authored as
// markdown; rendering and sanitizing live here so every consumer gets the
// same policy.
func (t *Thread) ContentHTML() template.HTML {
	return utils.RenderMarkdown(t.Content())
}
