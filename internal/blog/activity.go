package blog

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkwell/blogmind/internal/auth"
	"github.com/inkwell/blogmind/internal/errs"
	"github.com/inkwell/blogmind/internal/models"
)

// UserActivity collects what p has written and reacted to. Comments are
// grouped by post; comments on deleted posts are skipped.
func (s *Service) UserActivity(ctx context.Context, p *auth.Principal) (*models.UserActivity, error) {
	if p == nil || p.ID == "" {
		return nil, errs.New(errs.KindUnauthorized, "Not authorized")
	}

	own, err := s.posts.ListByAuthor(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	liked, err := s.posts.ListReactedBy(ctx, p.ID, models.ReactionLike)
	if err != nil {
		return nil, err
	}
	disliked, err := s.posts.ListReactedBy(ctx, p.ID, models.ReactionDislike)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByUser(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	postIDs := lo.Uniq(lo.Map(comments, func(c models.Comment, _ int) string { return c.PostID }))
	commented, err := s.posts.GetByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(commented, func(post models.Post) string { return post.ID })

	groups := make([]models.UserCommentGroup, 0, len(postIDs))
	index := make(map[string]int, len(postIDs))
	for _, c := range comments {
		post, ok := byID[c.PostID]
		if !ok {
			continue
		}
		i, seen := index[c.PostID]
		if !seen {
			i = len(groups)
			index[c.PostID] = i
			groups = append(groups, models.UserCommentGroup{
				PostID:    post.ID,
				PostTitle: post.Title,
				PostSlug:  post.Slug,
				Comments:  []models.UserComment{},
			})
		}
		groups[i].Comments = append(groups[i].Comments, models.UserComment{
			ID:        c.ID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}

	return &models.UserActivity{
		OwnPosts:      summaries(own),
		LikedPosts:    summaries(liked),
		DislikedPosts: summaries(disliked),
		UserComments:  groups,
	}, nil
}

func summaries(posts []models.Post) []models.PostSummary {
	out := make([]models.PostSummary, 0, len(posts))
	for i := range posts {
		out = append(out, posts[i].Summarize())
	}
	return out
}
