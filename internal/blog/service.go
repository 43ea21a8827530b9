// Package blog implements the post and comment operations of the platform
// and keeps the listing cache and indexing pipeline in step with writes.
package blog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/inkwell/blogmind/internal/auth"
	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/listing"
	"github.com/inkwell/blogmind/internal/models"
	"github.com/inkwell/blogmind/internal/reaction"
	"github.com/inkwell/blogmind/pkg/logging"
)

const dateLayout = "2006-01-02"

// PostStore persists posts and their reactions
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindByTitleOn(ctx context.Context, title string, day time.Time) (*models.Post, error)
	Delete(ctx context.Context, id string) (int64, error)
	ListAll(ctx context.Context) ([]models.Post, error)
	ListByAuthor(ctx context.Context, author string) ([]models.Post, error)
	ListReactedBy(ctx context.Context, userID string, kind models.ReactionKind) ([]models.Post, error)
	ReactionSets(ctx context.Context, postID string) (models.ReactionSets, error)
	Count(ctx context.Context) (int64, error)
	Stats(ctx context.Context) ([]models.PostStats, error)
}

// CommentStore persists comments
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Comment, error)
}

// ListingCache holds the public listing snapshot
type ListingCache interface {
	Get(ctx context.Context) (listing.Snapshot, bool)
	Set(ctx context.Context, snap listing.Snapshot)
	Invalidate(ctx context.Context)
}

// Submitter queues a post for indexing without blocking
type Submitter interface {
	Submit(postID, text string) bool
}

// Reactor toggles reactions
type Reactor interface {
	React(ctx context.Context, postID, userID string, kind models.ReactionKind) (*reaction.Result, error)
}

// PostInput is a new post as submitted by a user or the generation worker
type PostInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Categories  []string `json:"categories"`
	BannerImage string   `json:"bannerImage"`
	// Author and Date are honoured for agent posts only
	Author string `json:"author"`
	Date   string `json:"date"`
}

// AgentPostResult reports whether an agent post was created or already existed
type AgentPostResult struct {
	Message string           `json:"message"`
	Created bool             `json:"created"`
	Blog    *models.PostView `json:"blog"`
}

// DeleteResult is the outcome of a post deletion
type DeleteResult struct {
	Message         string `json:"message"`
	CommentsRemoved int64  `json:"commentsRemoved"`
}

// Service implements blog operations
type Service struct {
	posts    PostStore
	comments CommentStore
	listing  ListingCache
	indexer  Submitter
	reactor  Reactor
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a blog service
func NewService(posts PostStore, comments CommentStore, cache ListingCache, indexer Submitter, reactor Reactor) *Service {
	return &Service{
		posts:    posts,
		comments: comments,
		listing:  cache,
		indexer:  indexer,
		reactor:  reactor,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logging.WithComponent("blog-service"),
	}
}

// ListPosts returns every post, newest first, from the listing cache when
// possible. A miss rebuilds the snapshot from the store.
func (s *Service) ListPosts(ctx context.Context) (listing.Snapshot, error) {
	if snap, ok := s.listing.Get(ctx); ok {
		return snap, nil
	}

	posts, err := s.posts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(listing.Snapshot, 0, len(posts))
	for i := range posts {
		snap = append(snap, posts[i].Summarize())
	}
	s.listing.Set(ctx, snap)

	s.logger.Debug("Listing rebuilt from store", zap.Int("posts", len(snap)))
	return snap, nil
}

// GetPost returns a post by slug
func (s *Service) GetPost(ctx context.Context, slug string) (*models.PostView, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errs.New(errs.KindInvalid, "Invalid blog slug")
	}

	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}

	sets, err := s.posts.ReactionSets(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	view := post.View(sets)
	return &view, nil
}

// CreatePost publishes a post written by p
func (s *Service) CreatePost(ctx context.Context, p *auth.Principal, in PostInput) (*models.PostView, error) {
	if p == nil || p.ID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, errs.New(errs.KindInvalid, "Please add title and content")
	}

	post, err := s.newPost(in, p.Username, false, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, post); err != nil {
		return nil, err
	}

	view := post.View(models.ReactionSets{})
	return &view, nil
}

// CreateAgentPost publishes a post from the generation worker. A post with
// the same title on the same date is returned instead of a duplicate.
func (s *Service) CreateAgentPost(ctx context.Context, in PostInput) (*AgentPostResult, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, errs.New(errs.KindInvalid, "Missing blog components")
	}

	day := s.now()
	if in.Date != "" {
		parsed, err := parseDate(in.Date)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalid, "Invalid date, expected YYYY-MM-DD", err)
		}
		day = parsed
	}

	title := strings.TrimSpace(in.Title)
	existing, err := s.posts.FindByTitleOn(ctx, title, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		sets, err := s.posts.ReactionSets(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		view := existing.View(sets)
		return &AgentPostResult{Message: "Blog already exists", Created: false, Blog: &view}, nil
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = models.DefaultAgentAuthor
	}

	post, err := s.newPost(in, author, true, day)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, post); err != nil {
		return nil, err
	}

	view := post.View(models.ReactionSets{})
	return &AgentPostResult{Message: "Blog published successfully by Agent", Created: true, Blog: &view}, nil
}

func (s *Service) newPost(in PostInput, author string, agent bool, day time.Time) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	slug := Slugify(title)
	if slug == "" {
		return nil, errs.New(errs.KindInvalid, "Title must contain letters or digits")
	}

	id := uuid.NewString()
	now := s.now()
	categories := NormalizeCategories(in.Categories)

	post := &models.Post{
		ID:               id,
		Slug:             slug,
		Title:            title,
		Content:          in.Content,
		Summary:          strings.TrimSpace(in.Summary),
		Author:           author,
		IsAgentGenerated: agent,
		BannerImage:      strings.TrimSpace(in.BannerImage),
		PublishedOn:      truncateDay(day),
		CreatedAt:        now,
		UpdatedAt:        now,
		Categories:       make([]models.PostCategory, 0, len(categories)),
	}
	for i, name := range categories {
		post.Categories = append(post.Categories, models.PostCategory{PostID: id, Name: name, Position: int16(i)})
	}
	return post, nil
}

// publish stores a new post, drops the listing snapshot and queues the post
// for indexing. Indexing runs detached; a dropped job leaves the post not
// ready until it is re-submitted.
func (s *Service) publish(ctx context.Context, post *models.Post) error {
	if err := s.posts.Create(ctx, post); err != nil {
		return err
	}
	s.listing.Invalidate(ctx)

	if !s.indexer.Submit(post.ID, post.Content) {
		s.logger.Warn("Post published without indexing", zap.String("post_id", post.ID))
	}

	s.logger.Info("Post published",
		zap.String("post_id", post.ID),
		zap.String("slug", post.Slug),
		zap.Bool("agent", post.IsAgentGenerated))
	return nil
}

// DeletePost removes a post and its comments. Only admins and the post's
// author may delete it.
func (s *Service) DeletePost(ctx context.Context, p *auth.Principal, postID string) (*DeleteResult, error) {
	if p == nil || p.ID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}
	if _, err := uuid.Parse(postID); err != nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}
	if !p.IsAdmin() && !p.Owns(post.Author) {
		return nil, errs.New(errs.KindForbidden, "Not authorized to delete this blog")
	}

	removed, err := s.posts.Delete(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.listing.Invalidate(ctx)

	s.logger.Info("Post deleted",
		zap.String("post_id", postID),
		zap.String("by", p.Username),
		zap.Int64("comments_removed", removed))
	return &DeleteResult{Message: "Blog removed successfully", CommentsRemoved: removed}, nil
}

// React toggles p's reaction on a post. The listing snapshot carries no
// reaction data, so it is left alone.
func (s *Service) React(ctx context.Context, p *auth.Principal, postID string, kind models.ReactionKind) (*reaction.Result, error) {
	if p == nil || p.ID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}
	return s.reactor.React(ctx, postID, p.ID, kind)
}

// AddComment appends a comment by p to a post
func (s *Service) AddComment(ctx context.Context, p *auth.Principal, postID, text string) (*models.Comment, error) {
	if p == nil || p.ID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errs.New(errs.KindInvalid, "Comment text is required")
	}
	if _, err := uuid.Parse(postID); err != nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    p.ID,
		Username:  p.Username,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a post's comments, newest first
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, errs.New(errs.KindNotFound, "Blog not found")
	}
	return s.comments.ListByPost(ctx, postID)
}

// Stats returns the admin dashboard counters
func (s *Service) Stats(ctx context.Context) (*models.DashboardStats, error) {
	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.posts.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []models.PostStats{}
	}
	return &models.DashboardStats{TotalBlogs: total, DetailedStats: stats}, nil
}

// NormalizeCategories trims, de-duplicates and defaults a category list
func NormalizeCategories(categories []string) []string {
	cleaned := lo.Uniq(lo.FilterMap(categories, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	}))
	if len(cleaned) == 0 {
		return []string{models.DefaultCategory}
	}
	return cleaned
}

func parseDate(value string) (time.Time, error) {
	if day, err := time.Parse(dateLayout, value); err == nil {
		return day, nil
	}
	return time.Parse(time.RFC3339, value)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
