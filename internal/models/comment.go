package models

import (
	"time"
)

// Comment represents a comment on a post. Comments are never edited.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"not null;index:idx_comments_post,priority:1;type:varchar(36)" json:"post_id"`
	AuthorID  string    `gorm:"not null;type:varchar(128)" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_comments_post,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}
