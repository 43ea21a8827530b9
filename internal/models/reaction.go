package models

import (
	"time"
)

// ReactionKind is a user's reaction to a post
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Opposite returns the mutually exclusive kind
func (k ReactionKind) Opposite() ReactionKind {
	if k == ReactionLike {
		return ReactionDislike
	}
	return ReactionLike
}

// Valid reports whether k is a known kind
func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// PostReaction is one user's reaction to one post. The primary key makes a
// user appear in at most one of a post's liked-by/disliked-by sets.
type PostReaction struct {
	PostID    string       `gorm:"primaryKey;type:uuid;column:post_id"`
	UserID    string       `gorm:"primaryKey;type:varchar(64);index;column:user_id"`
	Kind      ReactionKind `gorm:"type:varchar(16);not null;column:kind"`
	CreatedAt time.Time    `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostReaction
func (PostReaction) TableName() string {
	return "post_reactions"
}

// ReactionSets holds the liked-by and disliked-by user sets of a post, in
// the order users joined them.
type ReactionSets struct {
	LikedBy    []string
	DislikedBy []string
}

// Set returns the set for kind
func (s ReactionSets) Set(kind ReactionKind) []string {
	if kind == ReactionLike {
		return s.LikedBy
	}
	return s.DislikedBy
}

// KindOf returns the kind of the user's current reaction, or "" if none
func (s ReactionSets) KindOf(userID string) ReactionKind {
	for _, id := range s.LikedBy {
		if id == userID {
			return ReactionLike
		}
	}
	for _, id := range s.DislikedBy {
		if id == userID {
			return ReactionDislike
		}
	}
	return ""
}
