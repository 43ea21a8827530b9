package models

import (
	"time"
)

// DefaultCategory is assigned when a post is created without categories
const DefaultCategory = "Uncategorized"

// DefaultAgentAuthor labels posts published by the generation worker
const DefaultAgentAuthor = "AI Blog Agent"

// Post represents a blog post
type Post struct {
	ID               string    `gorm:"primaryKey;type:uuid;column:id"`
	Slug             string    `gorm:"type:varchar(255);not null;uniqueIndex:posts_slug_key;column:slug"`
	Title            string    `gorm:"type:varchar(255);not null;column:title"`
	Content          string    `gorm:"type:text;not null;column:content"`
	Summary          string    `gorm:"type:text;column:summary"`
	Author           string    `gorm:"type:varchar(255);not null;index;column:author"`
	IsAgentGenerated bool      `gorm:"not null;default:false;column:is_agent_generated"`
	BannerImage      string    `gorm:"type:text;column:banner_image"`
	PublishedOn      time.Time `gorm:"type:date;not null;column:published_on"`
	RagIndexed       bool      `gorm:"not null;default:false;index;column:rag_indexed"`
	CreatedAt        time.Time `gorm:"not null;column:created_at"`
	UpdatedAt        time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Categories []PostCategory `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// CategoryNames returns the post's categories in their stored order
func (p *Post) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// PostCategory represents a post-to-category mapping
type PostCategory struct {
	PostID   string `gorm:"primaryKey;type:uuid;column:post_id"`
	Name     string `gorm:"primaryKey;type:varchar(64);column:name"`
	Position int16  `gorm:"type:smallint;not null;default:0;column:position"`
}

// TableName specifies the table name for PostCategory
func (PostCategory) TableName() string {
	return "post_categories"
}

// PostSummary is the listing projection of a post, as stored in the listing cache
type PostSummary struct {
	ID               string    `json:"_id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	Summary          string    `json:"summary,omitempty"`
	Content          string    `json:"content"`
	Author           string    `json:"author"`
	Categories       []string  `json:"categories"`
	IsAgentGenerated bool      `json:"isAgentGenerated"`
	BannerImage      string    `json:"bannerImage,omitempty"`
	Date             time.Time `json:"date"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Summarize builds the listing projection of p
func (p *Post) Summarize() PostSummary {
	return PostSummary{
		ID:               p.ID,
		Title:            p.Title,
		Slug:             p.Slug,
		Summary:          p.Summary,
		Content:          p.Content,
		Author:           p.Author,
		Categories:       p.CategoryNames(),
		IsAgentGenerated: p.IsAgentGenerated,
		BannerImage:      p.BannerImage,
		Date:             p.PublishedOn,
		CreatedAt:        p.CreatedAt,
	}
}

// PostView is the full representation of a single post
type PostView struct {
	PostSummary
	RagIndexed bool      `json:"ragIndexed"`
	Likes      []string  `json:"likes"`
	Dislikes   []string  `json:"dislikes"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View builds the full representation of p with its reaction sets
func (p *Post) View(sets ReactionSets) PostView {
	return PostView{
		PostSummary: p.Summarize(),
		RagIndexed:  p.RagIndexed,
		Likes:       nonNil(sets.LikedBy),
		Dislikes:    nonNil(sets.DislikedBy),
		UpdatedAt:   p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
