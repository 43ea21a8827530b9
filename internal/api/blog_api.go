package api

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/inkwell/blogmind/internal/auth"
	"github.com/inkwell/blogmind/internal/blog"
	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/listing"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/internal/qa"
	"github.com/inkwell/blogmind/internal/reaction"
)

// BlogService is the post and comment core
type BlogService interface {
	ListPosts(ctx context.Context) (listing.Snapshot, error)
	GetPost(ctx context.Context, slug string) (*models.PostView, error)
	CreatePost(ctx context.Context, p *auth.Principal, in blog.PostInput) (*models.PostView, error)
	CreateAgentPost(ctx context.Context, in blog.PostInput) (*blog.AgentPostResult, error)
	DeletePost(ctx context.Context, p *auth.Principal, postID string) (*blog.DeleteResult, error)
	React(ctx context.Context, p *auth.Principal, postID string, kind models.ReactionKind) (*reaction.Result, error)
	AddComment(ctx context.Context, p *auth.Principal, postID, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
	UserActivity(ctx context.Context, p *auth.Principal) (*models.UserActivity, error)
}

// Asker answers questions about posts
type Asker interface {
	Ask(ctx context.Context, postID, question string) (*qa.Answer, error)
}

// Reindexer re-submits posts for indexing
type Reindexer interface {
	Sweep(ctx context.Context, limit int) (int, error)
	Reindex(ctx context.Context, postID string) error
}

// BlogAPI provides blog_api methods
type BlogAPI struct {
	blogs        BlogService
	asker        Asker
	reindexer    Reindexer
	agentSecret  string
	reindexBatch int
}

// NewBlogAPI creates the blog API
func NewBlogAPI(blogs BlogService, asker Asker, reindexer Reindexer, agentSecret string, reindexBatch int) *BlogAPI {
	return &BlogAPI{
		blogs:        blogs,
		asker:        asker,
		reindexer:    reindexer,
		agentSecret:  agentSecret,
		reindexBatch: reindexBatch,
	}
}

type postRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// ListPosts handles blog_api.list_posts
func (b *BlogAPI) ListPosts(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	return b.blogs.ListPosts(c.Request.Context())
}

// GetPost handles blog_api.get_post
func (b *BlogAPI) GetPost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var req postRef
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.blogs.GetPost(c.Request.Context(), req.Slug)
}

// ListComments handles blog_api.list_comments
func (b *BlogAPI) ListComments(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var req postRef
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.blogs.ListComments(c.Request.Context(), req.ID)
}

// CreatePost handles blog_api.create_post
func (b *BlogAPI) CreatePost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	var in blog.PostInput
	if err := DecodeParams(params, &in); err != nil {
		return nil, err
	}
	in.Author, in.Date = "", ""
	return b.blogs.CreatePost(c.Request.Context(), p, in)
}

// CreateAgentPost handles blog_api.create_agent_post
func (b *BlogAPI) CreateAgentPost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	if err := requireAgent(c, b.agentSecret); err != nil {
		return nil, err
	}
	var in blog.PostInput
	if err := DecodeParams(params, &in); err != nil {
		return nil, err
	}
	return b.blogs.CreateAgentPost(c.Request.Context(), in)
}

// DeletePost handles blog_api.delete_post
func (b *BlogAPI) DeletePost(c *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	var req postRef
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.blogs.DeletePost(c.Request.Context(), p, req.ID)
}

// React handles blog_api.react
func (b *BlogAPI) React(c *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	var req struct {
		ID   string              `json:"id"`
		Kind models.ReactionKind `json:"kind"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.blogs.React(c.Request.Context(), p, req.ID, req.Kind)
}

// AddComment handles blog_api.add_comment
func (b *BlogAPI) AddComment(c *gin.Context, params json.RawMessage) (interface{}, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	var req struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.blogs.AddComment(c.Request.Context(), p, req.ID, req.Text)
}

// Ask handles blog_api.ask
func (b *BlogAPI) Ask(c *gin.Context, params json.RawMessage) (interface{}, error) {
	if _, err := requireUser(c); err != nil {
		return nil, err
	}
	var req struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}
	return b.asker.Ask(c.Request.Context(), req.ID, req.Question)
}

// Stats handles blog_api.stats
func (b *BlogAPI) Stats(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	if _, err := requireAdmin(c); err != nil {
		return nil, err
	}
	return b.blogs.Stats(c.Request.Context())
}

// UserActivity handles blog_api.user_activity
func (b *BlogAPI) UserActivity(c *gin.Context, _ json.RawMessage) (interface{}, error) {
	p, err := requireUser(c)
	if err != nil {
		return nil, err
	}
	return b.blogs.UserActivity(c.Request.Context(), p)
}

// Reindex handles blog_api.reindex. With an id it re-submits that post,
// otherwise it sweeps posts that are not ready yet.
func (b *BlogAPI) Reindex(c *gin.Context, params json.RawMessage) (interface{}, error) {
	if _, err := requireAdmin(c); err != nil {
		return nil, err
	}
	var req struct {
		ID    string `json:"id"`
		Limit int    `json:"limit"`
	}
	if err := DecodeParams(params, &req); err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	if req.ID != "" {
		if err := b.reindexer.Reindex(ctx, req.ID); err != nil {
			return nil, err
		}
		return gin.H{"submitted": 1}, nil
	}

	limit := req.Limit
	if limit <= 0 || limit > b.reindexBatch {
		limit = b.reindexBatch
	}
	if limit <= 0 {
		return nil, errs.New(errs.KindInvalid, "limit must be positive")
	}
	submitted, err := b.reindexer.Sweep(ctx, limit)
	if err != nil {
		return nil, err
	}
	return gin.H{"submitted": submitted}, nil
}
