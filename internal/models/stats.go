package models

import (
	"time"
)

// PostStats holds engagement counters for one post
type PostStats struct {
	ID       string `gorm:"column:id" json:"_id"`
	Title    string `gorm:"column:title" json:"title"`
	Likes    int64  `gorm:"column:likes" json:"likes"`
	Dislikes int64  `gorm:"column:dislikes" json:"dislikes"`
	Comments int64  `gorm:"column:comments" json:"comments"`
}

// DashboardStats is the admin overview of all posts
type DashboardStats struct {
	TotalBlogs    int64       `json:"totalBlogs"`
	DetailedStats []PostStats `json:"detailedStats"`
}

// UserComment is a comment as shown in a user's activity feed
type UserComment struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"date"`
}

// UserCommentGroup groups a user's comments by post
type UserCommentGroup struct {
	PostID    string        `json:"_id"`
	PostTitle string        `json:"blogTitle"`
	PostSlug  string        `json:"blogSlug"`
	Comments  []UserComment `json:"comments"`
}

// UserActivity is everything a user has written or reacted to
type UserActivity struct {
	OwnPosts      []PostSummary      `json:"ownPosts"`
	LikedPosts    []PostSummary      `json:"likedPosts"`
	DislikedPosts []PostSummary      `json:"dislikedPosts"`
	UserComments  []UserCommentGroup `json:"userComments"`
}
