package models

import (
	"time"
)

// FollowEdge is a directed follow relationship.
// FollowerID and FollowingID form the primary key, so each pair exists once.
type FollowEdge struct {
	FollowerID  string    `gorm:"primaryKey;type:varchar(128)" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;type:varchar(128);index:idx_follow_edges_following" json:"following_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (FollowEdge) TableName() string {
	return "follow_edges"
}
