// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Post represents a post in the chirp application.
type Post struct {
	ID       string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID string  `gorm:"not null;index:idx_posts_author_feed,priority:1;type:varchar(128)" json:"author_id"`
	Content  string  `gorm:"type:text;not null;default:''" json:"content"`
	ImageURL *string `json:"image_url"`
	// CommentCount is a denormalized aggregate of the comments table. It is
	// only changed through atomic SQL increments or a full recount.
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"not null;index:idx_posts_feed;index:idx_posts_author_feed,priority:2" json:"created_at"`
	// LikeSet and LikeCount are not persisted; loaded from post_likes.
	LikeSet   []string `gorm:"-" json:"like_set"`
	LikeCount int      `gorm:"-" json:"like_count"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// HasImage reports whether an image URL is attached.
func (p *Post) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

// Like is one member of a post's like set.
// The combination of PostID and UserID is the primary key.
type Like struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)" json:"post_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "post_likes"
}
