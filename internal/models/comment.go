package models

import (
	"time"
)

// Comment represents an immutable comment on a post
type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid;column:id" json:"_id"`
	PostID    string    `gorm:"type:uuid;not null;index;column:post_id" json:"blog"`
	UserID    string    `gorm:"type:varchar(64);not null;index;column:user_id" json:"user"`
	Username  string    `gorm:"type:varchar(255);not null;column:username" json:"username"`
	Text      string    `gorm:"type:text;not null;column:text" json:"text"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}
