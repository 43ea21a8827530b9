package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func orderedCategories(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID, or nil if it does not exist
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Where("id = ?", id).
		Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByIDs retrieves posts by ID; missing IDs are skipped
func (r *PostRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	var posts []models.Post
	if len(ids) == 0 {
		return posts, nil
	}
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Where("id IN ?", ids).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetBySlug retrieves a post by slug, or nil if it does not exist
func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Where("slug = ?", slug).
		Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// FindByTitleOn retrieves a post with the given title published on day
func (r *PostRepository) FindByTitleOn(ctx context.Context, title string, day time.Time) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Where("title = ? AND published_on = ?", title, day.Format("2006-01-02")).
		Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create inserts a post and its categories. A slug collision is reported
// as a DuplicateKey error.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.Wrap(errs.KindDuplicateKey,
			"A blog with this title already exists. Please choose a different title.", err)
	}
	return err
}

// Delete removes a post together with its comments, reactions and
// categories. It returns the number of comments removed.
func (r *PostRepository) Delete(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ?", id).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		if err := tx.Where("post_id = ?", id).Delete(&models.PostReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostCategory{}).Error; err != nil {
			return err
		}

		res = tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.New(errs.KindNotFound, "Blog not found")
		}
		return nil
	})
	return removed, err
}

// ListAll returns every post, newest first
func (r *PostRepository) ListAll(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByAuthor returns an author's posts, newest first
func (r *PostRepository) ListByAuthor(ctx context.Context, author string) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Where("author = ?", author).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListReactedBy returns the posts a user reacted to with kind, newest first
func (r *PostRepository) ListReactedBy(ctx context.Context, userID string, kind models.ReactionKind) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Categories", orderedCategories).
		Joins("JOIN post_reactions ON post_reactions.post_id = posts.id AND post_reactions.user_id = ? AND post_reactions.kind = ?", userID, kind).
		Order("posts.created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListNotIndexed returns up to limit posts that are not yet ready for
// question answering, oldest first
func (r *PostRepository) ListNotIndexed(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Where("rag_indexed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// MarkIndexed flips the readiness flag from false to true. It reports
// whether this call performed the transition; an already-ready post is
// left untouched and is not an error.
func (r *PostRepository) MarkIndexed(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND rag_indexed = ?", id, false).
		Updates(map[string]interface{}{
			"rag_indexed": true,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReactionSets loads the liked-by and disliked-by sets of a post
func (r *PostRepository) ReactionSets(ctx context.Context, postID string) (models.ReactionSets, error) {
	return loadReactionSets(r.db.WithContext(ctx), postID)
}

// UpdateReactions runs fn over the post's current reaction sets while
// holding a row lock on the post, then persists the difference. Posts are
// locked independently, so updates to different posts do not contend.
func (r *PostRepository) UpdateReactions(ctx context.Context, postID string, fn func(models.ReactionSets) models.ReactionSets) (models.ReactionSets, error) {
	var next models.ReactionSets
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", postID).
			Take(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.New(errs.KindNotFound, "Blog not found")
			}
			return err
		}

		prev, err := loadReactionSets(tx, postID)
		if err != nil {
			return err
		}

		next = fn(prev)
		return applyReactionDiff(tx, postID, prev, next)
	})
	return next, err
}

func loadReactionSets(db *gorm.DB, postID string) (models.ReactionSets, error) {
	var rows []models.PostReaction
	if err := db.Where("post_id = ?", postID).
		Order("created_at ASC, user_id ASC").
		Find(&rows).Error; err != nil {
		return models.ReactionSets{}, err
	}

	sets := models.ReactionSets{LikedBy: []string{}, DislikedBy: []string{}}
	for _, row := range rows {
		switch row.Kind {
		case models.ReactionLike:
			sets.LikedBy = append(sets.LikedBy, row.UserID)
		case models.ReactionDislike:
			sets.DislikedBy = append(sets.DislikedBy, row.UserID)
		}
	}
	return sets, nil
}

func applyReactionDiff(tx *gorm.DB, postID string, prev, next models.ReactionSets) error {
	before := reactionIndex(prev)
	after := reactionIndex(next)

	for userID := range before {
		if _, ok := after[userID]; ok {
			continue
		}
		if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).
			Delete(&models.PostReaction{}).Error; err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for userID, kind := range after {
		if before[userID] == kind {
			continue
		}
		row := models.PostReaction{PostID: postID, UserID: userID, Kind: kind, CreatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "created_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func reactionIndex(sets models.ReactionSets) map[string]models.ReactionKind {
	index := make(map[string]models.ReactionKind, len(sets.LikedBy)+len(sets.DislikedBy))
	for _, id := range sets.DislikedBy {
		index[id] = models.ReactionDislike
	}
	for _, id := range sets.LikedBy {
		index[id] = models.ReactionLike
	}
	return index
}

// Count returns the total number of posts
func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}

// Stats returns per-post engagement counters, most liked first
func (r *PostRepository) Stats(ctx context.Context) ([]models.PostStats, error) {
	var stats []models.PostStats
	if err := r.db.WithContext(ctx).
		Table("posts").
		Select(`posts.id, posts.title,
			(SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = posts.id AND r.kind = 'like') AS likes,
			(SELECT COUNT(*) FROM post_reactions r WHERE r.post_id = posts.id AND r.kind = 'dislike') AS dislikes,
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id) AS comments`).
		Order("likes DESC, posts.created_at DESC").
		Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Create(comment).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errs.Wrap(errs.KindNotFound, "Blog not found", err)
	}
	return err
}

// ListByPost returns a post's comments, newest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// ListByUser returns a user's comments, newest first
func (r *CommentRepository) ListByUser(ctx context.Context, userID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
